package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/kursadbilgin/crm-mailer/internal/config"
	"gopkg.in/gomail.v2"
)

// SMTPMailer delivers messages through a single SMTP relay. The session is
// upgraded with STARTTLS when the relay offers it (implicit TLS on 465) and
// authenticated with the configured username and password.
type SMTPMailer struct {
	tlsConfig *tls.Config
	send      func(d *gomail.Dialer, m *gomail.Message) error
}

var _ Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{
		send: func(d *gomail.Dialer, m *gomail.Message) error {
			return d.DialAndSend(m)
		},
	}
}

// WithTLSConfig overrides the TLS settings used for the encrypted session.
func (p *SMTPMailer) WithTLSConfig(cfg *tls.Config) *SMTPMailer {
	p.tlsConfig = cfg
	return p
}

func (p *SMTPMailer) Send(ctx context.Context, settings config.SMTPConfig, msg Message) error {
	if p == nil || p.send == nil {
		return fmt.Errorf("mailer is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return &ProviderError{Message: "delivery aborted", Cause: err}
	}

	host := strings.TrimSpace(settings.Host)
	if host == "" {
		return &ProviderError{Message: "relay host is required"}
	}
	if settings.Port <= 0 {
		return &ProviderError{Message: fmt.Sprintf("invalid relay port %d", settings.Port)}
	}

	dialer := gomail.NewDialer(host, settings.Port, settings.Username, settings.Password)
	if p.tlsConfig != nil {
		dialer.TLSConfig = p.tlsConfig
	} else {
		dialer.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}

	if err := p.send(dialer, newMessage(msg)); err != nil {
		return classifySMTPError(err)
	}
	return nil
}

func newMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	return m
}
