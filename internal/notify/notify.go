// Package notify sends the reply email that tells the sender what was recorded,
// or why their expense could not be recorded.
package notify

import (
	"context"
	"html"
	"strings"

	"github.com/dvloznov/expense-inbox/internal/ledger"
	"github.com/dvloznov/expense-inbox/internal/logger"
)

// DefaultSubject is used when the inbound email had no subject.
const DefaultSubject = "Re: Expense parsing"

// Reply is the outcome of one processed email. Exactly one of Row and Err is set.
type Reply struct {
	To      string
	Subject string
	Row     *ledger.Row
	Err     error
}

// Message is a composed outgoing email.
type Message struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers a composed message.
// This interface enables mocking and testing of outgoing mail.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// RenderBody renders the HTML body for a reply.
func RenderBody(reply Reply) string {
	if reply.Err != nil {
		return "There was an error parsing this expense: " + html.EscapeString(reply.Err.Error())
	}

	var b strings.Builder
	b.WriteString("Recorded the following:\n")
	if reply.Row != nil {
		for _, f := range reply.Row.Fields() {
			b.WriteString("<strong>")
			b.WriteString(html.EscapeString(f.Name))
			b.WriteString("</strong>: ")
			b.WriteString(html.EscapeString(f.Value))
			b.WriteString("<br />")
		}
	}
	return b.String()
}

// Notifier composes replies and hands them to a Sender.
type Notifier struct {
	sender Sender
	from   string
}

// NewNotifier creates a notifier that sends from the given address.
func NewNotifier(sender Sender, from string) *Notifier {
	return &Notifier{sender: sender, from: from}
}

// Notify sends the reply. Delivery failures are logged and never returned,
// so a failed reply cannot turn a recorded expense into a retry.
func (n *Notifier) Notify(ctx context.Context, reply Reply) {
	log := logger.FromContext(ctx)

	subject := reply.Subject
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}

	msg := Message{
		From:     n.from,
		To:       reply.To,
		Subject:  subject,
		HTMLBody: RenderBody(reply),
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("to", reply.To).Msg("Failed to send reply")
		return
	}

	log.Info().
		Str("to", reply.To).
		Bool("success", reply.Err == nil).
		Msg("Sent reply")
}
