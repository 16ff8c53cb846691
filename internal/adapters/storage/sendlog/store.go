package sendlog

import (
	"context"
	"time"

	domain "courier/internal/domain/sendlog"
)

// Store persists the append-only send log.
type Store interface {
	// Append inserts one audit record.
	// PRE: rec.CreatedAt is set
	// POST: Record is persisted with an assigned row id
	Append(ctx context.Context, rec domain.Record) error

	// List retrieves records matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]domain.Record, error)

	// PurgeSentBefore deletes records sent at or before cutoff. Idempotent.
	// POST: Returns the number of rows removed
	PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ListFilter specifies criteria for listing send records.
type ListFilter struct {
	ProgramKey string // filter by program key (empty = all)
	Status     string // filter by status (empty = all)
	Limit      int    // max rows (0 = no limit)
}
