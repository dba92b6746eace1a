package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"time"

	"github.com/dvloznov/expense-inbox/internal/config"
	"github.com/dvloznov/expense-inbox/internal/serviceaccount"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// NewGmailService creates a Gmail client that impersonates the given mailbox
// through domain-wide delegation. Extra options are appended.
func NewGmailService(ctx context.Context, sa config.ServiceAccountConfig, mailbox string, opts ...option.ClientOption) (*gmail.Service, error) {
	auth, err := serviceaccount.ClientOption(ctx, sa, mailbox, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("NewGmailService: %w", err)
	}

	svc, err := gmail.NewService(ctx, append([]option.ClientOption{auth}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("NewGmailService: create gmail client: %w", err)
	}
	return svc, nil
}

// GmailSender delivers messages with users.messages.send.
type GmailSender struct {
	svc *gmail.Service
	now func() time.Time
}

// NewGmailSender creates a Sender backed by the Gmail API.
func NewGmailSender(svc *gmail.Service) *GmailSender {
	return &GmailSender{svc: svc, now: time.Now}
}

// Send implements Sender.
func (s *GmailSender) Send(ctx context.Context, msg Message) error {
	raw, err := Compose(msg, s.now())
	if err != nil {
		return fmt.Errorf("Send: %w", err)
	}

	_, err = s.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("Send: gmail send to %s: %w", msg.To, err)
	}
	return nil
}

// Compose renders msg as an RFC 5322 message with a quoted-printable HTML body.
func Compose(msg Message, date time.Time) ([]byte, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return nil, fmt.Errorf("Compose: from address %q: %w", msg.From, err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, fmt.Errorf("Compose: to address %q: %w", msg.To, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(msg.HTMLBody)); err != nil {
		return nil, fmt.Errorf("Compose: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("Compose: encode body: %w", err)
	}

	return buf.Bytes(), nil
}
