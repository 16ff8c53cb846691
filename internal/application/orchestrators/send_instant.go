package orchestrators

import (
	"context"
	"log/slog"
	"time"

	emailAdapter "courier/internal/adapters/email"
	"courier/internal/domain/mail"
	sendlogDomain "courier/internal/domain/sendlog"
)

// SendLogAppender is the send-log access the request orchestrators need.
type SendLogAppender interface {
	Append(ctx context.Context, rec sendlogDomain.Record) error
}

// SendInstantInput carries input for an immediate send.
type SendInstantInput struct {
	ProgramKey string
	Recipients []string
	Subject    string
	Body       string
	HTML       bool
}

// SendInstantDeps holds dependencies for SendInstant.
type SendInstantDeps struct {
	Logs   SendLogAppender
	Sender emailAdapter.Sender
	Now    func() time.Time
}

// ExecuteSendInstant validates and sends an email immediately, appending one
// audit record regardless of outcome. Transport failure is reported in the
// result, not as an error; only validation fails the call.
// PRE: deps are wired
// POST: On nil error, exactly one transport attempt was made and logged
func ExecuteSendInstant(ctx context.Context, input SendInstantInput, deps SendInstantDeps) (emailAdapter.SendResult, error) {
	recipients := mail.Normalize(input.Recipients)
	if err := mail.ValidateAddresses(recipients); err != nil {
		return emailAdapter.SendResult{}, err
	}
	if err := mail.ValidateContent(input.Subject, input.Body); err != nil {
		return emailAdapter.SendResult{}, err
	}

	res := deps.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      recipients,
		Subject: input.Subject,
		Body:    input.Body,
		HTML:    input.HTML,
	})

	rec := sendlogDomain.FromOutcome(input.ProgramKey, mail.Join(recipients), input.Subject,
		input.Body, input.HTML, res.OK, res.StatusCode, deps.Now())
	if err := deps.Logs.Append(ctx, rec); err != nil {
		// The caller still gets the transport outcome; a lost audit row is logged, not fatal.
		slog.Error("send_log_append_failed", "error", err)
	}

	slog.Info("email_event", "event", "instant_send", "ok", res.OK,
		"status_code", res.StatusCode, "recipient_count", len(recipients))
	return res, nil
}
