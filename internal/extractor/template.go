package extractor

import (
	"regexp"
	"strings"

	"github.com/dvloznov/expense-inbox/internal/domain"
)

var (
	templateAmountRe  = regexp.MustCompile(`Amount:\s*(\$?\s*(?:[0-9]{1,3}(?:,[0-9]{3})+|[0-9]+)(?:\.[0-9]+)?)\s*,\s*To:`)
	templateToRe      = regexp.MustCompile(`To:\s*(.+?)\s*(?:,\s*Details:|$)`)
	templateDetailsRe = regexp.MustCompile(`Details:\s*(.*)$`)
)

// ParseTemplate extracts fields from a completion of the form
// "Amount: $1.20, To: Foo Bar, Details: 2022-01-31".
func ParseTemplate(completion string) (*domain.Expense, error) {
	line := strings.TrimSpace(completion)

	if !strings.Contains(line, "Amount:") {
		return nil, &ExtractionError{Reason: "completion does not contain an Amount field: " + quoteCompletion(line)}
	}
	toMatch := templateToRe.FindStringSubmatch(line)
	if toMatch == nil || strings.TrimSpace(toMatch[1]) == "" {
		return nil, &ExtractionError{Reason: "completion does not contain a To field: " + quoteCompletion(line)}
	}
	// The amount must be followed by ", To:" so "1,2" is rejected rather than read as 1.
	amountMatch := templateAmountRe.FindStringSubmatch(line)
	if amountMatch == nil {
		return nil, &ExtractionError{Reason: "completion has a malformed Amount field: " + quoteCompletion(line)}
	}

	amount, err := domain.NormalizeAmount(amountMatch[1])
	if err != nil {
		return nil, &ExtractionError{Reason: err.Error()}
	}

	expense := &domain.Expense{
		Amount:     amount,
		To:         strings.TrimSpace(toMatch[1]),
		Completion: completion,
	}
	if m := templateDetailsRe.FindStringSubmatch(line); m != nil {
		expense.Details = strings.Trim(strings.ReplaceAll(m[1], "N/A", ""), ", ")
	}

	return expense, nil
}

func quoteCompletion(s string) string {
	const maxLen = 200
	if r := []rune(s); len(r) > maxLen {
		s = string(r[:maxLen]) + "..."
	}
	return `"` + s + `"`
}
