package ledger

import (
	"testing"
	"time"

	"github.com/dvloznov/expense-inbox/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEmailDate(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "winter", in: "2023-01-10T17:39:18-08:00", want: "2023-01-10 -08:00"},
		{name: "summer", in: "2023-07-04T12:00:00-07:00", want: "2023-07-04 -07:00"},
		{name: "utc converts to local day", in: "2023-01-11T01:39:18Z", want: "2023-01-10 -08:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := time.Parse(time.RFC3339, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FormatEmailDate(ts, loc))
		})
	}
}

func TestFormatEmailDate_NilLocation(t *testing.T) {
	ts := time.Date(2023, 1, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2023-01-10 +00:00", FormatEmailDate(ts, nil))
}

func TestLoadLocation_Invalid(t *testing.T) {
	_, err := LoadLocation("Not/AZone")
	assert.Error(t, err)
}

func TestNewRow(t *testing.T) {
	loc, err := LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	date := time.Date(2023, 1, 11, 1, 39, 18, 0, time.UTC)

	t.Run("details from billing date and domain", func(t *testing.T) {
		row := NewRow(&domain.Expense{
			Amount:      "1337.00",
			To:          "ACME Web Services",
			BillingDate: "2023-01-02",
			DomainName:  "acme.example",
			Completion:  `{"to":"ACME Web Services"}`,
		}, date, loc)

		assert.Equal(t, Row{
			Amount:     "1337.00",
			SentTo:     "ACME Web Services",
			EmailDate:  "2023-01-10 -08:00",
			Details:    "2023-01-02, acme.example",
			Completion: `{"to":"ACME Web Services"}`,
		}, row)
	})

	t.Run("empty details", func(t *testing.T) {
		row := NewRow(&domain.Expense{Amount: "1.20", To: "Foo Bar"}, date, loc)
		assert.Equal(t, "", row.Details)
	})
}

func TestRow_Fields(t *testing.T) {
	row := Row{Amount: "1.20", SentTo: "Foo Bar", EmailDate: "2022-01-31 -08:00", Details: "2022-01-31"}

	fields := row.Fields()
	require.Len(t, fields, 4)
	assert.Equal(t, Field{Name: "Amount", Value: "1.20"}, fields[0])
	assert.Equal(t, Field{Name: "Details", Value: "2022-01-31"}, fields[3])

	row.Completion = "Amount: $1.20, To: Foo Bar"
	fields = row.Fields()
	require.Len(t, fields, 5)
	assert.Equal(t, "AI completion", fields[4].Name)
}
