package unitofwork

import (
	"context"
	"database/sql"
	"fmt"

	scheduleStore "courier/internal/adapters/storage/schedule"
	sendlogStore "courier/internal/adapters/storage/sendlog"
	"courier/internal/application/orchestrators"
)

// SQLite implements orchestrators.UnitOfWork over a single SQLite connection.
// Each Run is one transaction; the stores handed to fn are bound to it.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a unit-of-work factory over db.
// PRE: db is an open connection with the schema initialized
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Run executes fn inside one transaction.
// POST: All mutations fn made are committed together, or rolled back on error
func (u *SQLite) Run(ctx context.Context, fn func(ctx context.Context, s orchestrators.CycleStores) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer tx.Rollback()

	stores := orchestrators.CycleStores{
		Schedules: scheduleStore.NewSQLiteStore(tx),
		Logs:      sendlogStore.NewSQLiteStore(tx),
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}
	return tx.Commit()
}
