package schedule

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"courier/internal/adapters/storage"
	domain "courier/internal/domain/schedule"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new SQLiteStore. The querier may be a shared
// connection or a unit-of-work transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a new scheduled email.
// PRE: entity has been validated; ScheduleID is unique
// POST: Entity is persisted with an assigned row id
func (s *SQLiteStore) Create(ctx context.Context, e domain.Email) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_email (schedule_id, program_key, recipients, subject_line, body,
		                              is_html, scheduled_time, status, status_code, created_at, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ScheduleID, e.ProgramKey, e.Recipients, e.Subject, e.Body,
		boolToInt(e.HTML), e.ScheduledAt.UTC().Format(timeLayout), e.Status,
		nullCode(e.StatusCode), e.CreatedAt.UTC().Format(timeLayout), nullTime(e.SentAt))
	return err
}

// GetByScheduleID retrieves a scheduled email by its caller-facing token.
// PRE: scheduleID is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByScheduleID(ctx context.Context, scheduleID string) (domain.Email, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, schedule_id, program_key, recipients, subject_line, body, is_html,
		        scheduled_time, status, status_code, created_at, sent_at
		 FROM scheduled_email WHERE schedule_id = ?`, scheduleID)
	e, err := scanEmail(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Email{}, domain.ErrNotFound
	}
	return e, err
}

// ListDue returns all records with status=scheduled and scheduled_time <= now.
// POST: Every due record is returned; no ordering guarantee
func (s *SQLiteStore) ListDue(ctx context.Context, now time.Time) ([]domain.Email, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, schedule_id, program_key, recipients, subject_line, body, is_html,
		        scheduled_time, status, status_code, created_at, sent_at
		 FROM scheduled_email WHERE status = ? AND scheduled_time <= ?`,
		domain.StatusScheduled, now.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []domain.Email
	for rows.Next() {
		e, err := scanEmail(rows.Scan)
		if err != nil {
			return nil, err
		}
		due = append(due, e)
	}
	return due, rows.Err()
}

// Save updates the lifecycle fields of an existing record.
// PRE: entity exists (matched by ScheduleID)
// POST: status, status_code and sent_at are persisted
func (s *SQLiteStore) Save(ctx context.Context, e domain.Email) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_email SET status = ?, status_code = ?, sent_at = ?
		 WHERE schedule_id = ?`,
		e.Status, nullCode(e.StatusCode), nullTime(e.SentAt), e.ScheduleID)
	return err
}

// PurgeSentBefore deletes records sent at or before cutoff. Idempotent.
// POST: Returns the number of rows removed
func (s *SQLiteStore) PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scheduled_email WHERE sent_at IS NOT NULL AND sent_at <= ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// scanEmail scans one row via the given Scan func (works for Row and Rows).
func scanEmail(scan func(dest ...any) error) (domain.Email, error) {
	var e domain.Email
	var isHTML int
	var scheduledAt, createdAt string
	var statusCode sql.NullInt64
	var sentAt sql.NullString
	err := scan(&e.ID, &e.ScheduleID, &e.ProgramKey, &e.Recipients, &e.Subject, &e.Body,
		&isHTML, &scheduledAt, &e.Status, &statusCode, &createdAt, &sentAt)
	if err != nil {
		return domain.Email{}, err
	}
	e.HTML = isHTML != 0
	e.ScheduledAt, _ = time.Parse(timeLayout, scheduledAt)
	e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	if statusCode.Valid {
		e.StatusCode = int(statusCode.Int64)
	}
	if sentAt.Valid {
		e.SentAt, _ = time.Parse(timeLayout, sentAt.String)
	}
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullCode(code int) any {
	if code == 0 {
		return nil
	}
	return code
}
