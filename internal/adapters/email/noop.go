package email

import (
	"context"
	"log/slog"
)

// NoopSender is a no-op email sender for development and testing.
// It logs sends but does not actually deliver emails.
type NoopSender struct{}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send logs the email but does not deliver it.
// POST: Returns a successful result without actual delivery
func (s *NoopSender) Send(_ context.Context, req SendRequest) SendResult {
	slog.Info("noop_email_send", "to", req.To, "subject", req.Subject)
	return SendResult{OK: true, StatusCode: StatusOK, Message: "Email sent successfully (noop)"}
}
