package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/formatrack/internal/pkg/retry"
)

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool // implicit TLS (port 465); STARTTLS is used when the server offers it
	From     Address
}

// SMTPSender sends through an SMTP relay
type SMTPSender struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(config SMTPConfig, logger zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		config: config,
		logger: logger,
	}
}

// Send delivers msg. Credentials are optional for relays that do not require AUTH.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return retry.Permanent(err)
	}

	serverAddress := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	var conn net.Conn
	var err error
	if s.config.UseTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.config.Host}}).DialContext(ctx, "tcp", serverAddress)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", serverAddress)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to connect to SMTP server")
		return fmt.Errorf("failed to connect to SMTP server (network): %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if !s.config.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.config.Host}); err != nil {
				return fmt.Errorf("SMTP STARTTLS failed: %w", err)
			}
		}
	}

	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			s.logger.Error().Err(err).Msg("SMTP authentication failed")
			return retry.Permanent(fmt.Errorf("SMTP authentication failed: %w", err))
		}
	}

	if err := client.Mail(s.config.From.Email); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(msg.To.Email); err != nil {
		return retry.Permanent(fmt.Errorf("failed to set recipient: %w", err))
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write(buildMIME(s.config.From, msg)); err != nil {
		return fmt.Errorf("failed to write email message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return nil
}

// buildMIME renders msg as text, html or multipart/alternative
func buildMIME(from Address, msg Message) []byte {
	var b strings.Builder
	writeHeader := func(k, v string) {
		b.WriteString(k + ": " + v + "\r\n")
	}

	writeHeader("From", from.String())
	writeHeader("To", msg.To.String())
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader("Date", time.Now().Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")

	switch {
	case msg.Text != "" && msg.HTML != "":
		boundary := "formatrack-" + uuid.NewString()
		writeHeader("Content-Type", `multipart/alternative; boundary="`+boundary+`"`)
		b.WriteString("\r\n")
		for _, part := range []struct{ ctype, body string }{
			{"text/plain", msg.Text},
			{"text/html", msg.HTML},
		} {
			b.WriteString("--" + boundary + "\r\n")
			b.WriteString("Content-Type: " + part.ctype + "; charset=UTF-8\r\n\r\n")
			b.WriteString(part.body + "\r\n")
		}
		b.WriteString("--" + boundary + "--\r\n")
	case msg.HTML != "":
		writeHeader("Content-Type", "text/html; charset=UTF-8")
		b.WriteString("\r\n" + msg.HTML)
	default:
		writeHeader("Content-Type", "text/plain; charset=UTF-8")
		b.WriteString("\r\n" + msg.Text)
	}

	return []byte(b.String())
}
