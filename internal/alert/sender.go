package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/mail.v2"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	Timeout     time.Duration
}

type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPSender mails alerts to the operator.
type SMTPSender struct {
	dialer dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	return newSMTPSender(d, cfg)
}

func newSMTPSender(d dialer, cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: d,
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress),
	}
}

func (s *SMTPSender) Send(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", a.Recipient)
	m.SetHeader("Subject", a.Subject)
	m.SetBody("text/plain", a.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send alert to %s: %w", a.Recipient, err)
	}

	slog.InfoContext(ctx, "operator alert sent", "recipient", a.Recipient)
	return nil
}

// LogSender writes alerts to the log when no SMTP server is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, a Alert) error {
	slog.ErrorContext(ctx, "operator alert",
		"recipient", a.Recipient,
		"subject", a.Subject,
		"body", a.Body)
	return nil
}
