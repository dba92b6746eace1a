package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/expense-inbox/internal/config"
	"github.com/dvloznov/expense-inbox/internal/domain"
	"github.com/dvloznov/expense-inbox/internal/logger"
	"google.golang.org/genai"
)

// Protocol selects how the model is asked to return the expense fields.
type Protocol string

const (
	// ProtocolStructured forces a parse_expense function call with schema-checked arguments.
	ProtocolStructured Protocol = config.ExtractionStructured
	// ProtocolTemplate asks for a single "Amount: ..., To: ..., Details: ..." line.
	// Any deviation in the model's phrasing breaks it; kept as a degraded mode.
	ProtocolTemplate Protocol = config.ExtractionTemplate
)

// NewClient creates a GenAI client for the configured backend.
func NewClient(ctx context.Context, cfg config.ModelConfig) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.UseVertex() {
		cc = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Region,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("NewClient: create genai client: %w", err)
	}
	return client, nil
}

// Gemini is the Extractor backed by a Gemini model.
type Gemini struct {
	gen      Generator
	model    string
	protocol Protocol
}

// NewGemini creates an extractor. An empty model falls back to DefaultModelName.
func NewGemini(gen Generator, model string, protocol Protocol) *Gemini {
	if model == "" {
		model = DefaultModelName
	}
	if protocol == "" {
		protocol = ProtocolStructured
	}
	return &Gemini{gen: gen, model: model, protocol: protocol}
}

// Extract implements Extractor.
func (g *Gemini) Extract(ctx context.Context, body string) (*domain.Expense, error) {
	switch g.protocol {
	case ProtocolStructured:
		return g.extractStructured(ctx, body)
	case ProtocolTemplate:
		return g.extractTemplate(ctx, body)
	default:
		return nil, fmt.Errorf("unknown extraction protocol %q", g.protocol)
	}
}

func (g *Gemini) extractStructured(ctx context.Context, body string) (*domain.Expense, error) {
	log := logger.FromContext(ctx)

	temp := temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: textContent("user", systemInstruction),
		Temperature:       &temp,
		Tools: []*genai.Tool{
			{FunctionDeclarations: []*genai.FunctionDeclaration{parseExpenseDeclaration()}},
		},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingConfigModeAny,
				AllowedFunctionNames: []string{parseExpenseFunction},
			},
		},
	}

	contents := []*genai.Content{
		textContent("user", userInstruction),
		textContent("user", body),
	}

	resp, err := g.gen.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("extractStructured: generate content: %w", err)
	}

	expense, err := ParseFunctionCall(resp)
	if err != nil {
		return nil, err
	}

	log.Info().Str("completion", expense.Completion).Msg("Parsed expense function call")
	return expense, nil
}

// ParseFunctionCall reads the parse_expense arguments out of a model response.
func ParseFunctionCall(resp *genai.GenerateContentResponse) (*domain.Expense, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &ExtractionError{Reason: "no candidates in model response"}
	}

	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		return nil, &ExtractionError{Reason: "no function calls in model response"}
	}
	args := calls[0].Args

	raw, err := json.Marshal(args)
	if err != nil {
		return nil, &ExtractionError{Reason: fmt.Sprintf("unreadable function arguments: %v", err)}
	}

	expense := &domain.Expense{
		To:          strings.TrimSpace(argString(args, "to")),
		BillingDate: domain.NormalizeDate(argString(args, "billing_date")),
		DomainName:  strings.TrimSpace(argString(args, "domain_name")),
		Completion:  string(raw),
	}
	if expense.To == "" {
		return nil, &ExtractionError{Reason: "model returned no payee"}
	}

	amount, err := domain.NormalizeAmount(argString(args, "amount"))
	if err != nil {
		return nil, &ExtractionError{Reason: err.Error()}
	}
	expense.Amount = amount

	return expense, nil
}

// argString reads an argument as text; models occasionally emit numbers for amounts.
func argString(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (g *Gemini) extractTemplate(ctx context.Context, body string) (*domain.Expense, error) {
	log := logger.FromContext(ctx)

	temp := temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	contents := []*genai.Content{textContent("user", buildTemplatePrompt(body))}

	resp, err := g.gen.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("extractTemplate: generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &ExtractionError{Reason: "no candidates in model response"}
	}

	completion := resp.Text()
	log.Info().Str("completion", completion).Msg("Received template completion")

	return ParseTemplate(completion)
}
