package provider

import (
	"context"

	"github.com/kursadbilgin/crm-mailer/internal/config"
)

// Message is a rendered plain-text email ready for delivery.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer is the outbound email delivery port. Each call opens and closes
// its own relay session using the settings passed in.
type Mailer interface {
	Send(ctx context.Context, settings config.SMTPConfig, msg Message) error
}
