package web

import (
	"net/http"
	"time"

	"courier/internal/adapters/email"
	"courier/internal/adapters/http/middleware"
	scheduleStore "courier/internal/adapters/storage/schedule"
	sendlogStore "courier/internal/adapters/storage/sendlog"
)

// Stores holds all storage dependencies.
type Stores struct {
	ScheduleStore scheduleStore.Store
	SendLogStore  sendlogStore.Store
}

// Global stores instance (set by NewMux)
var stores *Stores

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global email sender instance (set by SetEmailSender)
var emailSender email.Sender

// Address that receives a confirmation copy when a schedule is created.
// Empty disables confirmations.
var confirmationAddress string

// SetEmailSender sets the global email sender for the application.
func SetEmailSender(sender email.Sender, confirmation string) {
	emailSender = sender
	confirmationAddress = confirmation
}

// NewMux wires HTTP handlers for the service.
// allowedOrigin, when non-empty, is echoed in CORS headers for API callers.
func NewMux(s *Stores, allowedOrigin string) http.Handler {
	stores = s

	mux := http.NewServeMux()
	registerRoutes(mux)

	// Rate limiter: configurable requests per second per IP (OWASP A04)
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: RequestLog -> SecurityHeaders -> CORS -> RateLimit -> Mux
	return middleware.Chain(mux,
		middleware.RequestLog,
		middleware.SecurityHeaders,
		middleware.CORS(allowedOrigin),
		middleware.RateLimit(limiter),
	)
}
