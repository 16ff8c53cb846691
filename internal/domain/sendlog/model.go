package sendlog

import "time"

// Status constants for the send log.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Record is one append-only audit row. Exactly one Record is written per
// dispatch attempt, instant or scheduled, success or failure.
type Record struct {
	ID         int64
	ProgramKey string
	Recipients string // comma-delimited normalized addresses
	Subject    string
	Body       string
	HTML       bool
	Status     string
	StatusCode int
	CreatedAt  time.Time
	SentAt     time.Time // non-zero iff Status == sent
}

// FromOutcome builds the audit record for a completed dispatch attempt.
// PRE: now is the attempt instant (UTC)
// POST: Status/StatusCode/SentAt reflect the outcome; SentAt zero on failure
func FromOutcome(programKey, recipients, subject, body string, html bool, ok bool, statusCode int, now time.Time) Record {
	rec := Record{
		ProgramKey: programKey,
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
		HTML:       html,
		Status:     StatusFailed,
		StatusCode: statusCode,
		CreatedAt:  now,
	}
	if ok {
		rec.Status = StatusSent
		rec.SentAt = now
	}
	return rec
}
