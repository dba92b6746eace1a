package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/expense-inbox/internal/domain"
	"github.com/dvloznov/expense-inbox/internal/extractor"
	"github.com/dvloznov/expense-inbox/internal/gcs"
	"github.com/dvloznov/expense-inbox/internal/ledger"
	"github.com/dvloznov/expense-inbox/internal/logger"
	"github.com/dvloznov/expense-inbox/internal/mailparse"
)

// Stage names a point in the processing of one email.
type Stage string

const (
	StageFetching    Stage = "fetching"
	StageParsing     Stage = "parsing"
	StageSenderCheck Stage = "sender_check"
	StageValidating  Stage = "validating"
	StageExtracting  Stage = "extracting"
	StageWriting     Stage = "writing"
	StageReplying    Stage = "replying"
	StageDone        Stage = "done"
	StageDropped     Stage = "dropped"
	StageFailed      Stage = "failed"
)

// Step is a single stage of the email pipeline.
type Step interface {
	Stage() Stage
	Execute(ctx context.Context, state *State) error
}

// State holds what the steps have learned about one email so far.
type State struct {
	Ref     gcs.ObjectRef
	Raw     []byte
	Message *mailparse.Message
	Expense *domain.Expense
	Row     *ledger.Row
	Stage   Stage

	// SenderOK is set once the sender passed the allow-list; only then may a reply go out.
	SenderOK bool
	// Dropped stops the pipeline without an error.
	Dropped bool
}

// StageError records which stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FetchStep downloads the raw message.
type FetchStep struct {
	Fetcher gcs.Fetcher
}

func (s *FetchStep) Stage() Stage { return StageFetching }

func (s *FetchStep) Execute(ctx context.Context, state *State) error {
	raw, err := s.Fetcher.Fetch(ctx, state.Ref)
	if err != nil {
		return err
	}
	state.Raw = raw
	return nil
}

// ParseStep decodes the MIME message.
type ParseStep struct{}

func (s *ParseStep) Stage() Stage { return StageParsing }

func (s *ParseStep) Execute(ctx context.Context, state *State) error {
	msg, err := mailparse.Parse(state.Raw)
	if err != nil {
		return err
	}
	state.Message = msg
	return nil
}

// SenderCheckStep drops mail that does not come from the allow-listed address.
type SenderCheckStep struct {
	Allowed string
}

func (s *SenderCheckStep) Stage() Stage { return StageSenderCheck }

func (s *SenderCheckStep) Execute(ctx context.Context, state *State) error {
	if !SenderAllowed(state.Message.From, s.Allowed) {
		log := logger.FromContext(ctx)
		log.Warn().Str("from", state.Message.From).Msg("Sender not allowed, dropping email")
		state.Dropped = true
		return nil
	}
	state.SenderOK = true
	return nil
}

// SenderAllowed reports whether from is exactly the allow-listed address.
func SenderAllowed(from, allowed string) bool {
	return allowed != "" && from == allowed
}

// ValidateStep requires the text body and date.
type ValidateStep struct{}

func (s *ValidateStep) Stage() Stage { return StageValidating }

func (s *ValidateStep) Execute(ctx context.Context, state *State) error {
	return state.Message.Validate()
}

// ExtractStep asks the model for the expense fields.
type ExtractStep struct {
	Extractor extractor.Extractor
}

func (s *ExtractStep) Stage() Stage { return StageExtracting }

func (s *ExtractStep) Execute(ctx context.Context, state *State) error {
	expense, err := s.Extractor.Extract(ctx, state.Message.Text)
	if err != nil {
		return err
	}
	state.Expense = expense
	return nil
}

// WriteStep appends the ledger row.
type WriteStep struct {
	Writer   ledger.Writer
	Location *time.Location
}

func (s *WriteStep) Stage() Stage { return StageWriting }

func (s *WriteStep) Execute(ctx context.Context, state *State) error {
	row := ledger.NewRow(state.Expense, state.Message.Date, s.Location)
	written, err := s.Writer.Append(ctx, row)
	if err != nil {
		return err
	}
	state.Row = &written
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs the steps in order until one fails or drops the email.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for _, step := range p.steps {
		state.Stage = step.Stage()
		if err := step.Execute(ctx, state); err != nil {
			return &StageError{Stage: step.Stage(), Err: err}
		}
		if state.Dropped {
			state.Stage = StageDropped
			return nil
		}
	}
	return nil
}

// Deps are the collaborators of the expense pipeline.
type Deps struct {
	Fetcher   gcs.Fetcher
	Extractor extractor.Extractor
	Writer    ledger.Writer
	Location  *time.Location
	Allowed   string
}

// NewExpensePipeline creates the standard pipeline: fetch, parse, check the
// sender, validate, extract, write.
func NewExpensePipeline(d Deps) *Pipeline {
	return NewPipeline(
		&FetchStep{Fetcher: d.Fetcher},
		&ParseStep{},
		&SenderCheckStep{Allowed: d.Allowed},
		&ValidateStep{},
		&ExtractStep{Extractor: d.Extractor},
		&WriteStep{Writer: d.Writer, Location: d.Location},
	)
}
