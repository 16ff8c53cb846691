package sendlog

import (
	"context"
	"database/sql"
	"time"

	"courier/internal/adapters/storage"
	domain "courier/internal/domain/sendlog"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append inserts one audit record.
// PRE: rec.CreatedAt is set
// POST: Record is persisted with an assigned row id
func (s *SQLiteStore) Append(ctx context.Context, rec domain.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_log (program_key, recipients, subject_line, body, is_html,
		                        status, status_code, created_at, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ProgramKey, rec.Recipients, rec.Subject, rec.Body, boolToInt(rec.HTML),
		rec.Status, nullCode(rec.StatusCode), rec.CreatedAt.UTC().Format(timeLayout),
		nullTime(rec.SentAt))
	return err
}

// List retrieves records matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Record, error) {
	query := `SELECT id, program_key, recipients, subject_line, body, is_html,
	                 status, status_code, created_at, sent_at
	          FROM email_log WHERE 1=1`
	var args []any

	if filter.ProgramKey != "" {
		query += " AND program_key = ?"
		args = append(args, filter.ProgramKey)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var rec domain.Record
		var isHTML int
		var createdAt string
		var statusCode sql.NullInt64
		var sentAt sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ProgramKey, &rec.Recipients, &rec.Subject, &rec.Body,
			&isHTML, &rec.Status, &statusCode, &createdAt, &sentAt); err != nil {
			return nil, err
		}
		rec.HTML = isHTML != 0
		rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		if statusCode.Valid {
			rec.StatusCode = int(statusCode.Int64)
		}
		if sentAt.Valid {
			rec.SentAt, _ = time.Parse(timeLayout, sentAt.String)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PurgeSentBefore deletes records sent at or before cutoff. Idempotent.
// POST: Returns the number of rows removed
func (s *SQLiteStore) PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM email_log WHERE sent_at IS NOT NULL AND sent_at <= ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
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
