package ledger

import (
	"fmt"
	"strings"
)

// HeaderError reports required columns missing from the sheet header.
type HeaderError struct {
	Sheet   string
	Missing []string
	Header  []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("sheet %q is missing columns %q (header is %q)", e.Sheet, e.Missing, e.Header)
}

// Header is the validated header row of the ledger sheet.
type Header struct {
	columns []string
	index   map[string]int
}

// NewHeader checks a header row against RequiredColumns. Titles are compared
// exactly and case-sensitively; extra columns are allowed and left blank.
func NewHeader(sheet string, cells []interface{}) (*Header, error) {
	h := &Header{index: make(map[string]int)}
	for i, cell := range cells {
		title := fmt.Sprint(cell)
		h.columns = append(h.columns, title)
		if _, dup := h.index[title]; !dup {
			h.index[title] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := h.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Sheet: sheet, Missing: missing, Header: h.columns}
	}

	return h, nil
}

// Has reports whether the header contains column.
func (h *Header) Has(column string) bool {
	_, ok := h.index[column]
	return ok
}

// Values lays the row out in header order. Unknown columns get empty strings.
// Free-text columns come from the email and the model, so they are escaped
// before Sheets parses them as USER_ENTERED input.
func (h *Header) Values(row Row) []interface{} {
	values := make([]interface{}, len(h.columns))
	for i, col := range h.columns {
		v, ok := row.value(col)
		if !ok || h.index[col] != i {
			v = ""
		}
		switch col {
		case ColumnSentTo, ColumnDetails, ColumnCompletion:
			v = EscapeFormula(v)
		}
		values[i] = v
	}
	return values
}

// EscapeFormula prefixes an apostrophe to values Sheets would otherwise
// evaluate as a formula. The apostrophe is not displayed in the cell.
func EscapeFormula(v string) string {
	if v != "" && strings.ContainsRune("=+-@", rune(v[0])) {
		return "'" + v
	}
	return v
}

// String is used in log lines.
func (h *Header) String() string {
	return strings.Join(h.columns, " | ")
}
