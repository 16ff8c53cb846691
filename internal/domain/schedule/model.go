package schedule

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"courier/internal/domain/mail"
)

// Status constants for the scheduled-email lifecycle.
// A record leaves "scheduled" exactly once and never transitions back.
const (
	StatusScheduled = "scheduled"
	StatusSent      = "sent"
	StatusFailed    = "failed"
)

// Domain errors.
var (
	ErrNotInFuture  = errors.New("scheduled time must be in the future")
	ErrNotScheduled = errors.New("email is not in scheduled status")
	ErrNotFound     = errors.New("scheduled email not found")
)

// Email is the mutable lifecycle record for a deferred send.
// Recipients is the comma-delimited normalized address list; content fields
// are fixed at creation. Only the dispatcher mutates Status, StatusCode and
// SentAt after creation.
type Email struct {
	ID          int64
	ScheduleID  string // caller-facing opaque token, 32 hex chars
	ProgramKey  string
	Recipients  string
	Subject     string
	Body        string
	HTML        bool
	ScheduledAt time.Time
	Status      string
	StatusCode  int
	CreatedAt   time.Time
	SentAt      time.Time
}

// NewScheduleID returns an opaque 128-bit random token, hex-encoded.
func NewScheduleID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Validate checks the creation invariants.
// PRE: Email is populated and now is the creation instant (UTC)
// POST: Returns nil if the record may be persisted, a validation error otherwise
func (e *Email) Validate(now time.Time) error {
	if len(mail.Split(e.Recipients)) == 0 {
		return mail.ErrNoRecipients
	}
	if err := mail.ValidateContent(e.Subject, e.Body); err != nil {
		return err
	}
	if !e.ScheduledAt.After(now) {
		return ErrNotInFuture
	}
	return nil
}

// IsDue reports whether the record is eligible for dispatch at now.
// INVARIANT: fields are not mutated
func (e *Email) IsDue(now time.Time) bool {
	return e.Status == StatusScheduled && !e.ScheduledAt.After(now)
}

// MarkSent records a successful dispatch.
// PRE: Email is in scheduled status
// POST: Status is sent, SentAt set, StatusCode 200
func (e *Email) MarkSent(sentAt time.Time) error {
	if e.Status != StatusScheduled {
		return ErrNotScheduled
	}
	e.Status = StatusSent
	e.StatusCode = 200
	e.SentAt = sentAt
	return nil
}

// MarkFailed records a dispatch failure. Terminal; the send is not retried.
// PRE: Email is in scheduled status
// POST: Status is failed, StatusCode set, SentAt stays zero
func (e *Email) MarkFailed(statusCode int) error {
	if e.Status != StatusScheduled {
		return ErrNotScheduled
	}
	e.Status = StatusFailed
	e.StatusCode = statusCode
	return nil
}
