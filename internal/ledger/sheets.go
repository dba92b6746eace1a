package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/expense-inbox/internal/config"
	"github.com/dvloznov/expense-inbox/internal/logger"
	"github.com/dvloznov/expense-inbox/internal/serviceaccount"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultSheetTitle is the tab expenses are appended to.
const DefaultSheetTitle = "Expenses"

// ErrSheetNotFound means the spreadsheet has no tab with the configured title.
var ErrSheetNotFound = errors.New("sheet not found")

// Writer appends expense rows to the ledger.
// This interface enables mocking and testing of spreadsheet writes.
type Writer interface {
	// Append writes one row and returns it as written.
	Append(ctx context.Context, row Row) (Row, error)
}

// NewSheetsService creates a Sheets API client authenticated as the service account.
// Extra options are appended, which lets tests point the client at a fake server.
func NewSheetsService(ctx context.Context, sa config.ServiceAccountConfig, opts ...option.ClientOption) (*sheets.Service, error) {
	auth, err := serviceaccount.ClientOption(ctx, sa, "", sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("NewSheetsService: %w", err)
	}

	svc, err := sheets.NewService(ctx, append([]option.ClientOption{auth}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("NewSheetsService: create sheets client: %w", err)
	}
	return svc, nil
}

// SheetsWriter is the Google Sheets implementation of Writer.
type SheetsWriter struct {
	svc           *sheets.Service
	spreadsheetID string
	title         string
}

// NewSheetsWriter creates a writer for one tab of one spreadsheet.
func NewSheetsWriter(svc *sheets.Service, spreadsheetID, title string) *SheetsWriter {
	if title == "" {
		title = DefaultSheetTitle
	}
	return &SheetsWriter{svc: svc, spreadsheetID: spreadsheetID, title: title}
}

// Validate loads the spreadsheet metadata, finds the tab, and checks its header row.
// Call it at startup to fail fast on a misconfigured sheet.
func (w *SheetsWriter) Validate(ctx context.Context) (*Header, error) {
	ss, err := w.svc.Spreadsheets.Get(w.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("Validate: load spreadsheet %s: %w", w.spreadsheetID, err)
	}

	found := false
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == w.title {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("Validate: %q in spreadsheet %s: %w", w.title, w.spreadsheetID, ErrSheetNotFound)
	}

	vr, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, w.a1("1:1")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Validate: read header row: %w", err)
	}

	var cells []interface{}
	if len(vr.Values) > 0 {
		cells = vr.Values[0]
	}
	header, err := NewHeader(w.title, cells)
	if err != nil {
		return nil, fmt.Errorf("Validate: %w", err)
	}
	return header, nil
}

// Append implements Writer. The header is re-read on every call so column
// reordering in the sheet is picked up without a restart.
func (w *SheetsWriter) Append(ctx context.Context, row Row) (Row, error) {
	log := logger.FromContext(ctx)

	header, err := w.Validate(ctx)
	if err != nil {
		return Row{}, fmt.Errorf("Append: %w", err)
	}
	if !header.Has(ColumnCompletion) {
		row.Completion = ""
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{header.Values(row)}}
	resp, err := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, w.a1("A1"), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return Row{}, fmt.Errorf("Append: append row to %q: %w", w.title, err)
	}

	ev := log.Info().Str("sheet", w.title)
	if resp.Updates != nil {
		ev = ev.Str("updated_range", resp.Updates.UpdatedRange)
	}
	ev.Msg("Appended expense row")

	return row, nil
}

// a1 prefixes a range with the quoted sheet title.
func (w *SheetsWriter) a1(rng string) string {
	return "'" + strings.ReplaceAll(w.title, "'", "''") + "'!" + rng
}
