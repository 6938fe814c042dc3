package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	overtime "venue-timers/internal/overtime/domain"
)

// DBTX is the subset of *sql.DB / *sql.Tx used by the repository.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS overtime_records (
	record_key TEXT PRIMARY KEY,
	station_id TEXT NOT NULL,
	station_name TEXT NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	overtime_minutes INTEGER NOT NULL CHECK (overtime_minutes > 0),
	source TEXT NOT NULL,
	period_key TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS overtime_records_period_idx ON overtime_records (period_key, recorded_at);`

// RecordRepository persists overtime records.
type RecordRepository struct {
	db DBTX
}

// NewRecordRepository constructs a repository.
func NewRecordRepository(db DBTX) (*RecordRepository, error) {
	if db == nil {
		return nil, errors.New("overtime repo: nil db")
	}
	return &RecordRepository{db: db}, nil
}

// EnsureSchema creates the table when missing.
func (r *RecordRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("overtime repo: ensure schema: %w", err)
	}
	return nil
}

// AppendOvertime inserts rec; an existing key yields overtime.ErrDuplicate.
func (r *RecordRepository) AppendOvertime(ctx context.Context, rec overtime.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO overtime_records (
	record_key, station_id, station_name, session_id, overtime_minutes, source, period_key, recorded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (record_key) DO NOTHING`,
		rec.Key, rec.StationID, rec.StationName, rec.SessionID, rec.OvertimeMinutes, string(rec.Source), rec.PeriodKey, rec.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("overtime repo: insert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return overtime.ErrDuplicate
	}
	return nil
}

// ListByPeriod returns records of a period ordered by time.
func (r *RecordRepository) ListByPeriod(ctx context.Context, periodKey string) ([]overtime.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT record_key, station_id, station_name, session_id, overtime_minutes, source, period_key, recorded_at
FROM overtime_records
WHERE period_key = $1
ORDER BY recorded_at, record_key`, periodKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []overtime.Record
	for rows.Next() {
		var (
			rec    overtime.Record
			source string
		)
		if err := rows.Scan(&rec.Key, &rec.StationID, &rec.StationName, &rec.SessionID, &rec.OvertimeMinutes, &source, &rec.PeriodKey, &rec.Timestamp); err != nil {
			return nil, err
		}
		rec.Source = overtime.Source(source)
		out = append(out, rec)
	}
	return out, rows.Err()
}
