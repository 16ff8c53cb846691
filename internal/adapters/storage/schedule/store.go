package schedule

import (
	"context"
	"time"

	domain "courier/internal/domain/schedule"
)

// Store persists ScheduledEmail state.
type Store interface {
	// Create inserts a new scheduled email.
	// PRE: entity has been validated; ScheduleID is unique
	// POST: Entity is persisted with an assigned row id
	Create(ctx context.Context, e domain.Email) error

	// GetByScheduleID retrieves a scheduled email by its caller-facing token.
	// PRE: scheduleID is non-empty
	// POST: Returns the entity or domain.ErrNotFound
	GetByScheduleID(ctx context.Context, scheduleID string) (domain.Email, error)

	// ListDue returns all records with status=scheduled and scheduled_time <= now.
	// POST: Every due record is returned; no ordering guarantee
	ListDue(ctx context.Context, now time.Time) ([]domain.Email, error)

	// Save updates the lifecycle fields of an existing record.
	// PRE: entity exists (matched by ScheduleID)
	// POST: status, status_code and sent_at are persisted
	Save(ctx context.Context, e domain.Email) error

	// PurgeSentBefore deletes records sent at or before cutoff. Idempotent.
	// POST: Returns the number of rows removed
	PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
