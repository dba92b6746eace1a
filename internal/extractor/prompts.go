package extractor

import (
	"strings"

	"google.golang.org/genai"
)

const (
	// DefaultModelName is the default Gemini model used for extraction.
	DefaultModelName = "gemini-2.5-flash"

	// parseExpenseFunction is the function the model is forced to call in structured mode.
	parseExpenseFunction = "parse_expense"

	// Low temperature keeps answers for the same email stable.
	temperature float32 = 0.1
)

const systemInstruction = "You are an expense tracking assistant. Parse expense details from the email " +
	"content the user provides. Do not make up numbers or names."

const userInstruction = "Here is an expense email, parse and record the details"

// parseExpenseDeclaration describes the argument object the model must produce.
func parseExpenseDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        parseExpenseFunction,
		Description: "Record the parsed expense details",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"to": {
					Type:        genai.TypeString,
					Description: "The recipient of the expense. This is usually a company name.",
				},
				"amount": {
					Type:        genai.TypeString,
					Description: "The dollar amount of the expense.",
				},
				"billing_date": {
					Type: genai.TypeString,
					Description: "The date the expense was billed, in ISO format (YYYY-MM-DD). " +
						"If no date is present, leave this blank",
				},
				"domain_name": {
					Type:        genai.TypeString,
					Description: "If this expense is for a domain name, record the domain name here.",
				},
			},
			Required: []string{"to", "amount"},
		},
	}
}

// buildTemplatePrompt asks for the single-line answer parsed by ParseTemplate.
func buildTemplatePrompt(body string) string {
	var b strings.Builder
	b.WriteString("Parse the expense in the email below.\n")
	b.WriteString("Reply with exactly one line in this format and nothing else:\n")
	b.WriteString("Amount: <dollar amount>, To: <who was paid>, Details: <billing date as YYYY-MM-DD and domain name if the expense is for a domain, otherwise N/A>\n")
	b.WriteString("Do not make up numbers or names.\n\n")
	b.WriteString("Email:\n")
	b.WriteString(body)
	return b.String()
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{
		Role:  role,
		Parts: []*genai.Part{{Text: text}},
	}
}
