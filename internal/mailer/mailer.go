// Package mailer sends HTML email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"medibook-server/internal/config"
)

// Sender delivers a single HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// New returns an SMTP sender, or a LogSender when no SMTP host is configured.
func New(cfg config.MailerConfig, logger zerolog.Logger) Sender {
	if cfg.Host == "" {
		return &LogSender{logger: logger}
	}
	return &SMTPSender{cfg: cfg}
}

// SMTPSender sends mail through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	cfg config.MailerConfig
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, buildMessage(s.cfg.From, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, subject, htmlBody string) error {
	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(htmlBody)).
		Msg("email not sent, SMTP_HOST is empty")
	return nil
}
