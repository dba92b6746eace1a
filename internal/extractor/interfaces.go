package extractor

import (
	"context"

	"github.com/dvloznov/expense-inbox/internal/domain"
	"google.golang.org/genai"
)

// Extractor pulls structured expense fields out of an email body.
// This interface enables mocking and testing of the model call.
type Extractor interface {
	// Extract returns the parsed expense, or an error. A model answer that
	// cannot be used is reported as *ExtractionError.
	Extract(ctx context.Context, body string) (*domain.Expense, error)
}

// Generator is the part of the GenAI models service the extractor needs.
// *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ExtractionError means the model answered but nothing usable could be extracted.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return "could not extract expense: " + e.Reason
}
