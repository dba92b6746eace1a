package domain

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Expense is the structured result of extracting one expense from an email body.
// Both extraction protocols produce it.
type Expense struct {
	Amount      string // decimal string without currency symbol, e.g. "1337.00"
	To          string // payee, usually a company name
	BillingDate string // YYYY-MM-DD when the model found one
	DomainName  string // set when the expense is a domain registration
	Details     string // free-form details from the template protocol
	Completion  string // raw model output, kept for auditing
}

// DetailItems returns the non-empty detail values in column order.
func (e Expense) DetailItems() []string {
	if e.Details != "" {
		return []string{e.Details}
	}
	var items []string
	for _, v := range []string{e.BillingDate, e.DomainName} {
		if v != "" {
			items = append(items, v)
		}
	}
	return items
}

// NormalizeAmount strips whitespace and a leading "$" and checks the remainder is a number.
func NormalizeAmount(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if s == "" {
		return "", fmt.Errorf("amount is empty")
	}
	if _, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "")); err != nil {
		return "", fmt.Errorf("amount %q is not a number", raw)
	}
	return s, nil
}

// NormalizeDate returns an ISO date when raw parses as one, otherwise the trimmed input.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if d, err := civil.ParseDate(s); err == nil {
		return d.String()
	}
	return s
}
