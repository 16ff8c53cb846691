package storage

import (
	"database/sql"
	"fmt"
)

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS email_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		program_key TEXT NOT NULL DEFAULT '',
		recipients TEXT NOT NULL,
		subject_line TEXT NOT NULL,
		body TEXT NOT NULL,
		is_html INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		status_code INTEGER,
		created_at TEXT NOT NULL,
		sent_at TEXT
	);

	CREATE TABLE IF NOT EXISTS scheduled_email (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		schedule_id TEXT NOT NULL UNIQUE,
		program_key TEXT NOT NULL DEFAULT '',
		recipients TEXT NOT NULL,
		subject_line TEXT NOT NULL,
		body TEXT NOT NULL,
		is_html INTEGER NOT NULL DEFAULT 0,
		scheduled_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		status_code INTEGER,
		created_at TEXT NOT NULL,
		sent_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_scheduled_email_due
		ON scheduled_email (status, scheduled_time);

	CREATE INDEX IF NOT EXISTS idx_email_log_sent_at
		ON email_log (sent_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
