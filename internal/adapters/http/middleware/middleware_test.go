package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestRateLimiter_Allow tests the token bucket boundaries.
func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)
	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("expected request %d allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("expected rate limit exceeded")
	}
	// A different IP has its own bucket.
	if !rl.Allow("5.6.7.8") {
		t.Error("expected separate bucket per IP")
	}
}

// TestSecurityHeaders tests that headers are set on every response.
func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected frame deny header")
	}
}

// TestCORS_PreflightAndOrigin tests origin echoing and OPTIONS short-circuit.
func TestCORS_PreflightAndOrigin(t *testing.T) {
	inner := 0
	h := CORS("https://app.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner++
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("OPTIONS", "/api/email/send", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", rr.Code)
	}
	if inner != 0 {
		t.Error("expected preflight to short-circuit")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Error("expected allow-origin header")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/email/send", nil))
	if inner != 1 {
		t.Error("expected non-preflight request passed through")
	}
}

// TestCORS_Disabled tests that an empty origin adds no headers.
func TestCORS_Disabled(t *testing.T) {
	h := CORS("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/ping", nil))
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected no CORS headers when disabled")
	}
}
