package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fahmycader/metermate-backend/internal/config"
)

func TestFromConfig(t *testing.T) {
	m := FromConfig(config.SMTPConfig{})
	assert.IsType(t, LogMailer{}, m)

	m = FromConfig(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "no-reply@example.com"})
	assert.IsType(t, &SMTPMailer{}, m)
}

func TestLogMailer_Send(t *testing.T) {
	err := LogMailer{}.Send(context.Background(), "a@example.com", "subject", "body")
	assert.NoError(t, err)
}

func TestVerificationEmail(t *testing.T) {
	subject, body := VerificationEmail("http://localhost:8080", "tok-123")
	assert.Contains(t, subject, "Verify")
	assert.Contains(t, body, "http://localhost:8080/api/auth/verify?token=tok-123")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSMTP(config.SMTPConfig{Host: "smtp.example.com", Port: 587}).
		Send(ctx, "a@example.com", "s", "b")
	assert.Error(t, err)
}
