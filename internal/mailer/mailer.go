// Package mailer sends account emails. Delivery is behind an interface so
// the API can run with a log-only mailer in development.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fahmycader/metermate-backend/internal/config"
	"github.com/fahmycader/metermate-backend/internal/retry"
)

// Mailer delivers a single plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers mail over SMTP with PLAIN auth.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTP creates an SMTP mailer from config.
func NewSMTP(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "mailer: context")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.cfg.From, to, subject, body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	err := retry.Do(ctx, retry.DefaultConfig(), "smtp send", func(context.Context) error {
		return smtp.SendMail(addr, a, m.cfg.From, []string{to}, []byte(msg))
	})
	if err != nil {
		return eris.Wrapf(err, "mailer: send to %s", to)
	}
	return nil
}

// LogMailer logs mail instead of delivering it. Used when no SMTP host is
// configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	zap.L().Info("mailer: would send email",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}

// FromConfig picks the SMTP mailer when a host is configured, otherwise the
// log mailer.
func FromConfig(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		return LogMailer{}
	}
	return NewSMTP(cfg)
}

// VerificationEmail renders the account verification message for a token.
func VerificationEmail(baseURL, token string) (subject, body string) {
	subject = "Verify your MeterMate account"
	body = fmt.Sprintf(
		"Welcome to MeterMate.\n\nVerify your account by opening:\n\n%s/api/auth/verify?token=%s\n\nThe link expires in 48 hours. If you did not register, ignore this email.\n",
		baseURL, token)
	return subject, body
}
