// Package email sends transactional notification emails.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/pkg/retry"
)

// Providers
const (
	ProviderLog      = "log"
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
)

// ErrNoRecipient is returned for a message without a usable address
var ErrNoRecipient = errors.New("email has no recipient")

// Address is a display name plus an email address
type Address struct {
	Name  string
	Email string
}

// String formats the address for a header
func (a Address) String() string {
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

// Message is one email
type Message struct {
	To      Address
	Subject string
	Text    string
	HTML    string
}

// Validate checks the recipient address and content
func (m Message) Validate() error {
	if strings.TrimSpace(m.To.Email) == "" {
		return ErrNoRecipient
	}
	if _, err := mail.ParseAddress(m.To.Email); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", m.To.Email, err)
	}
	if m.Text == "" && m.HTML == "" {
		return errors.New("email has no content")
	}
	return nil
}

// Sender delivers emails
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds configuration for the email provider
type Config struct {
	Provider       string
	FromName       string
	FromEmail      string
	SendGridAPIKey string
	SMTP           SMTPConfig
}

// NewSender builds the configured provider wrapped in the retry helper
func NewSender(cfg Config, retryCfg retry.Config, logger zerolog.Logger) (Sender, error) {
	from := Address{Name: cfg.FromName, Email: cfg.FromEmail}

	var base Sender
	switch strings.ToLower(cfg.Provider) {
	case ProviderLog, "":
		return NewLogSender(logger), nil
	case ProviderSMTP:
		smtpCfg := cfg.SMTP
		smtpCfg.From = from
		base = NewSMTPSender(smtpCfg, logger)
	case ProviderSendGrid:
		base = NewSendGridSender(cfg.SendGridAPIKey, from, logger)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}

	return NewRetryingSender(base, retryCfg, logger), nil
}
