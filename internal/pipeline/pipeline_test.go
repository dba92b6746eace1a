package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/dvloznov/expense-inbox/internal/extractor"
	"github.com/dvloznov/expense-inbox/internal/gcs"
	"github.com/dvloznov/expense-inbox/internal/ledger"
	"github.com/dvloznov/expense-inbox/internal/mailparse"
	"github.com/dvloznov/expense-inbox/internal/notify"
	"github.com/dvloznov/expense-inbox/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const allowedSender = "sender@example.com"

// MockFetcher is a mock implementation of gcs.Fetcher for testing.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, ref gcs.ObjectRef) ([]byte, error)
	Calls     int
}

func (m *MockFetcher) Fetch(ctx context.Context, ref gcs.ObjectRef) ([]byte, error) {
	m.Calls++
	return m.FetchFunc(ctx, ref)
}

// MockGenerator is a mock implementation of extractor.Generator for testing.
type MockGenerator struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *MockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.GenerateContentFunc(ctx, model, contents, config)
}

// MockWriter is a mock implementation of ledger.Writer for testing.
type MockWriter struct {
	AppendFunc func(ctx context.Context, row ledger.Row) (ledger.Row, error)
	Rows       []ledger.Row
}

func (m *MockWriter) Append(ctx context.Context, row ledger.Row) (ledger.Row, error) {
	m.Rows = append(m.Rows, row)
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, row)
	}
	return row, nil
}

// MockNotifier records replies.
type MockNotifier struct {
	Replies []notify.Reply
}

func (m *MockNotifier) Notify(ctx context.Context, reply notify.Reply) {
	m.Replies = append(m.Replies, reply)
}

func fixture(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile("testdata/expense.eml")
	require.NoError(t, err)
	return raw
}

func serve(raw []byte) *MockFetcher {
	return &MockFetcher{FetchFunc: func(context.Context, gcs.ObjectRef) ([]byte, error) {
		return raw, nil
	}}
}

func acmeCall() *MockGenerator {
	return &MockGenerator{GenerateContentFunc: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{
					Role: "model",
					Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{
						Name: "parse_expense",
						Args: map[string]any{
							"to":           "ACME Web Services",
							"amount":       "1337.00",
							"billing_date": "2023-01-02",
						},
					}}},
				},
			}},
		}, nil
	}}
}

func failingCall(err error) *MockGenerator {
	return &MockGenerator{GenerateContentFunc: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, err
	}}
}

type harness struct {
	fetcher  *MockFetcher
	writer   *MockWriter
	notifier *MockNotifier
	orch     *pipeline.Orchestrator
}

func newHarness(t *testing.T, fetcher *MockFetcher, gen extractor.Generator, prefix string) *harness {
	t.Helper()
	loc, err := ledger.LoadLocation("")
	require.NoError(t, err)

	h := &harness{fetcher: fetcher, writer: &MockWriter{}, notifier: &MockNotifier{}}
	p := pipeline.NewExpensePipeline(pipeline.Deps{
		Fetcher:   fetcher,
		Extractor: extractor.NewGemini(gen, "", extractor.ProtocolStructured),
		Writer:    h.writer,
		Location:  loc,
		Allowed:   allowedSender,
	})
	h.orch = pipeline.NewOrchestrator(p, h.notifier, prefix)
	return h
}

var ref = gcs.ObjectRef{Bucket: "inbox", Key: "emails/0qc3lh4sfpbv0a1mr2vjsq8d3np3q1og8h0kgs01"}

func TestHandle_EndToEnd(t *testing.T) {
	h := newHarness(t, serve(fixture(t)), acmeCall(), "")

	err := h.orch.Handle(context.Background(), ref)
	require.NoError(t, err)

	want := ledger.Row{
		Amount:     "1337.00",
		SentTo:     "ACME Web Services",
		EmailDate:  "2023-01-10 -08:00",
		Details:    "2023-01-02",
		Completion: `{"amount":"1337.00","billing_date":"2023-01-02","to":"ACME Web Services"}`,
	}
	require.Len(t, h.writer.Rows, 1)
	assert.Equal(t, want, h.writer.Rows[0])

	require.Len(t, h.notifier.Replies, 1)
	reply := h.notifier.Replies[0]
	assert.Equal(t, allowedSender, reply.To)
	assert.Equal(t, "Fwd: Your ACME Web Services invoice", reply.Subject)
	assert.NoError(t, reply.Err)
	require.NotNil(t, reply.Row)
	assert.Equal(t, want, *reply.Row)
}

func TestHandle_SenderMismatch(t *testing.T) {
	h := newHarness(t, serve(fixture(t)), acmeCall(), "")

	p := pipeline.NewExpensePipeline(pipeline.Deps{
		Fetcher:   h.fetcher,
		Extractor: extractor.NewGemini(acmeCall(), "", extractor.ProtocolStructured),
		Writer:    h.writer,
		Allowed:   "someone-else@example.com",
	})
	orch := pipeline.NewOrchestrator(p, h.notifier, "")

	err := orch.Handle(context.Background(), ref)
	require.NoError(t, err)
	assert.Empty(t, h.writer.Rows)
	assert.Empty(t, h.notifier.Replies)
}

func TestHandle_ModelServerError(t *testing.T) {
	h := newHarness(t, serve(fixture(t)), failingCall(genai.APIError{Code: 500, Message: "internal"}), "")

	err := h.orch.Handle(context.Background(), ref)
	require.Error(t, err)
	assert.True(t, pipeline.IsTransient(err))

	assert.Empty(t, h.writer.Rows)
	require.Len(t, h.notifier.Replies, 1)
	reply := h.notifier.Replies[0]
	assert.Nil(t, reply.Row)
	require.Error(t, reply.Err)
	assert.Contains(t, reply.Err.Error(), "internal")
	assert.NotContains(t, reply.Err.Error(), "pipeline stage")
}

func TestHandle_ExtractionFailure(t *testing.T) {
	empty := &MockGenerator{GenerateContentFunc: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	}}
	h := newHarness(t, serve(fixture(t)), empty, "")

	err := h.orch.Handle(context.Background(), ref)
	require.Error(t, err)
	assert.False(t, pipeline.IsTransient(err))

	var exErr *extractor.ExtractionError
	assert.True(t, errors.As(err, &exErr))

	var stageErr *pipeline.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, pipeline.StageExtracting, stageErr.Stage)

	assert.Empty(t, h.writer.Rows)
	require.Len(t, h.notifier.Replies, 1)
	assert.Equal(t, "could not extract expense: no candidates in model response", h.notifier.Replies[0].Err.Error())
}

func TestHandle_WriteFailure(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		transient bool
	}{
		{name: "unavailable", code: 503, transient: true},
		{name: "forbidden", code: 403, transient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, serve(fixture(t)), acmeCall(), "")
			h.writer.AppendFunc = func(context.Context, ledger.Row) (ledger.Row, error) {
				return ledger.Row{}, fmt.Errorf("Append: %w", &googleapi.Error{Code: tt.code, Message: "sheets"})
			}

			err := h.orch.Handle(context.Background(), ref)
			require.Error(t, err)
			assert.Equal(t, tt.transient, pipeline.IsTransient(err))

			assert.Len(t, h.writer.Rows, 1)
			require.Len(t, h.notifier.Replies, 1)
			assert.Error(t, h.notifier.Replies[0].Err)
		})
	}
}

func TestHandle_MissingBody(t *testing.T) {
	fetcher := &MockFetcher{FetchFunc: func(context.Context, gcs.ObjectRef) ([]byte, error) {
		return nil, fmt.Errorf("Fetch: %w", gcs.ErrMissingBody)
	}}
	h := newHarness(t, fetcher, acmeCall(), "")

	err := h.orch.Handle(context.Background(), ref)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gcs.ErrMissingBody))
	assert.False(t, pipeline.IsTransient(err))
	assert.Empty(t, h.notifier.Replies)
}

func TestHandle_MalformedMessage(t *testing.T) {
	h := newHarness(t, serve([]byte("this line is not a header\r\n\r\nbody")), acmeCall(), "")

	err := h.orch.Handle(context.Background(), ref)
	require.Error(t, err)

	var perr *mailparse.ParseError
	assert.True(t, errors.As(err, &perr))
	assert.Empty(t, h.writer.Rows)
	assert.Empty(t, h.notifier.Replies)
}

func TestHandle_MissingText(t *testing.T) {
	raw := []byte("From: sender@example.com\r\n" +
		"Date: Tue, 10 Jan 2023 17:39:18 -0800\r\n" +
		"Subject: receipt\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		"<p>Total $5.00</p>\r\n")
	h := newHarness(t, serve(raw), acmeCall(), "")

	err := h.orch.Handle(context.Background(), ref)
	require.Error(t, err)

	var mf *mailparse.MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, "text", mf.Field)

	assert.Empty(t, h.writer.Rows)
	require.Len(t, h.notifier.Replies, 1)
	assert.Equal(t, "no email text found", h.notifier.Replies[0].Err.Error())
	assert.Equal(t, "receipt", h.notifier.Replies[0].Subject)
}

func TestHandle_MissingDate(t *testing.T) {
	raw := []byte("From: sender@example.com\r\n" +
		"Subject: receipt\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"Total $5.00\r\n")
	h := newHarness(t, serve(raw), acmeCall(), "")

	err := h.orch.Handle(context.Background(), ref)
	require.Error(t, err)

	var mf *mailparse.MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, "date", mf.Field)

	assert.Empty(t, h.writer.Rows)
	require.Len(t, h.notifier.Replies, 1)
	assert.Equal(t, "no email date found", h.notifier.Replies[0].Err.Error())
	assert.Equal(t, "sender@example.com", h.notifier.Replies[0].To)
}

func TestHandle_PrefixFilter(t *testing.T) {
	h := newHarness(t, serve(fixture(t)), acmeCall(), "emails/")

	err := h.orch.Handle(context.Background(), gcs.ObjectRef{Bucket: "inbox", Key: "AMAZON_SES_SETUP_NOTIFICATION"})
	require.NoError(t, err)
	assert.Zero(t, h.fetcher.Calls)

	err = h.orch.Handle(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 1, h.fetcher.Calls)
}

// failingSender always fails, to check reply errors never escape Handle.
type failingSender struct {
	calls int
}

func (f *failingSender) Send(context.Context, notify.Message) error {
	f.calls++
	return errors.New("gmail unavailable")
}

func TestHandle_SendFailureDoesNotPropagate(t *testing.T) {
	loc, err := ledger.LoadLocation("")
	require.NoError(t, err)

	sender := &failingSender{}
	writer := &MockWriter{}
	p := pipeline.NewExpensePipeline(pipeline.Deps{
		Fetcher:   serve(fixture(t)),
		Extractor: extractor.NewGemini(acmeCall(), "", extractor.ProtocolStructured),
		Writer:    writer,
		Location:  loc,
		Allowed:   allowedSender,
	})
	orch := pipeline.NewOrchestrator(p, notify.NewNotifier(sender, "expenses@example.com"), "")

	err = orch.Handle(context.Background(), ref)
	require.NoError(t, err)
	assert.Len(t, writer.Rows, 1)
	assert.Equal(t, 1, sender.calls)
}
