package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// EmailNotifier mirrors customer notifications to the pharmacy inbox
// over SMTP. A nil notifier is the disabled state; callers check before
// sending.
type EmailNotifier struct {
	client *mail.Client
	from   string
	to     string
}

// NewEmailNotifier builds the SMTP client. Returns (nil, nil) when host
// or to is empty so deployments without SMTP simply skip email.
func NewEmailNotifier(host string, port int, username, password, from, to string) (*EmailNotifier, error) {
	if host == "" || to == "" {
		return nil, nil
	}
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &EmailNotifier{client: client, from: from, to: to}, nil
}

// Send delivers one plain-text message to the configured inbox.
func (n *EmailNotifier) Send(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(n.to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
