package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// ResendSender delivers mail via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a new ResendSender with the given API key and from address.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
// POST: Returns a ready-to-use sender
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// Send delivers a single email via Resend, mapped onto the shared result codes.
// PRE: req has at least one recipient and a subject
// POST: Result carries 200 on success; 503 on unreachable API, 500 otherwise
func (s *ResendSender) Send(ctx context.Context, req SendRequest) SendResult {
	body := req.Body
	if !req.HTML {
		body = "<html><body><pre style='white-space: pre-wrap'>" + html.EscapeString(req.Body) + "</pre></body></html>"
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      req.To,
		Subject: req.Subject,
		Html:    body,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		code := StatusTransportError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			code = StatusConnectFailed
		}
		slog.Error("resend_send_failed", "error", err, "to", req.To, "subject", req.Subject)
		return SendResult{StatusCode: code, Message: fmt.Sprintf("resend send failed: %v", err)}
	}

	slog.Info("resend_sent", "message_id", sent.Id, "to", req.To, "subject", req.Subject)
	return SendResult{OK: true, StatusCode: StatusOK, Message: "Email sent successfully"}
}
