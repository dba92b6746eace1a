// Package mailparse turns raw MIME messages stored by the mail service into the
// handful of fields the expense pipeline needs.
package mailparse

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mnako/letters"
)

// Message is the parsed view of one inbound email.
type Message struct {
	From    string
	Subject string
	Date    time.Time
	Text    string
	HTML    string
}

// ParseError wraps a failure of the underlying MIME parser.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed email: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingFieldError names a required field that the parsed message lacks.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("no email %s found", e.Field)
}

// Parse decodes raw MIME bytes. Attachments and inline files (images included) are
// skipped and the HTML part is returned as-is, without text conversion.
func Parse(raw []byte) (*Message, error) {
	parser := letters.NewEmailParser(letters.WithFileFilter(letters.NoFiles))

	email, err := parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	msg := &Message{
		Subject: email.Headers.Subject,
		Date:    email.Headers.Date,
		Text:    email.Text,
		HTML:    email.HTML,
	}
	if len(email.Headers.From) > 0 && email.Headers.From[0] != nil {
		msg.From = email.Headers.From[0].Address
	} else if email.Headers.Sender != nil {
		msg.From = email.Headers.Sender.Address
	}

	return msg, nil
}

// Validate checks the fields the pipeline cannot work without.
func (m *Message) Validate() error {
	if m.Text == "" {
		return &MissingFieldError{Field: "text"}
	}
	if m.Date.IsZero() {
		return &MissingFieldError{Field: "date"}
	}
	return nil
}
