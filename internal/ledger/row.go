package ledger

import (
	"strings"
	"time"

	_ "time/tzdata" // the ledger timezone must resolve on minimal container images

	"github.com/dvloznov/expense-inbox/internal/domain"
)

// Column titles. These must match the header row of the sheet exactly.
const (
	ColumnAmount     = "Amount"
	ColumnSentTo     = "Sent to"
	ColumnEmailDate  = "Email date"
	ColumnDetails    = "Details"
	ColumnCompletion = "AI completion"
)

// RequiredColumns must all be present in the sheet header.
var RequiredColumns = []string{ColumnAmount, ColumnSentTo, ColumnEmailDate, ColumnDetails}

// DefaultTimezone is the zone email dates are rendered in.
const DefaultTimezone = "America/Los_Angeles"

const emailDateLayout = "2006-01-02 -07:00"

// Row is one expense line in the sheet.
type Row struct {
	Amount     string
	SentTo     string
	EmailDate  string
	Details    string
	Completion string // only written when the sheet has an "AI completion" column
}

// Field is a column title and its value.
type Field struct {
	Name  string
	Value string
}

// NewRow maps an extracted expense and the email's date onto the sheet columns.
func NewRow(expense *domain.Expense, emailDate time.Time, loc *time.Location) Row {
	return Row{
		Amount:     expense.Amount,
		SentTo:     expense.To,
		EmailDate:  FormatEmailDate(emailDate, loc),
		Details:    strings.Join(expense.DetailItems(), ", "),
		Completion: expense.Completion,
	}
}

// FormatEmailDate renders t as "YYYY-MM-DD ±HH:MM" in loc.
func FormatEmailDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(emailDateLayout)
}

// LoadLocation resolves a timezone name, defaulting to DefaultTimezone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	return time.LoadLocation(name)
}

// Fields lists the row in column order. The AI completion is included only when set.
func (r Row) Fields() []Field {
	fields := []Field{
		{Name: ColumnAmount, Value: r.Amount},
		{Name: ColumnSentTo, Value: r.SentTo},
		{Name: ColumnEmailDate, Value: r.EmailDate},
		{Name: ColumnDetails, Value: r.Details},
	}
	if r.Completion != "" {
		fields = append(fields, Field{Name: ColumnCompletion, Value: r.Completion})
	}
	return fields
}

// value returns the cell value for a header title.
func (r Row) value(column string) (string, bool) {
	switch column {
	case ColumnAmount:
		return r.Amount, true
	case ColumnSentTo:
		return r.SentTo, true
	case ColumnEmailDate:
		return r.EmailDate, true
	case ColumnDetails:
		return r.Details, true
	case ColumnCompletion:
		return r.Completion, true
	}
	return "", false
}
