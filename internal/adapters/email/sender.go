package email

import "context"

// Transport result codes shared by all sender implementations.
const (
	StatusOK             = 200
	StatusAuthFailed     = 401
	StatusTransportError = 500
	StatusConnectFailed  = 503
	StatusUnknownError   = 520
)

// SendRequest contains the data needed to deliver one email.
type SendRequest struct {
	To      []string // normalized recipient addresses
	Subject string
	Body    string
	HTML    bool // true if Body is already HTML
}

// SendResult is the explicit outcome of a delivery attempt. Transport
// failures are reported here, not as Go errors, so callers branch on the
// outcome instead of unwinding.
type SendResult struct {
	OK         bool
	StatusCode int
	Message    string
}

// Sender is the interface for delivering emails via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) SendResult
}
