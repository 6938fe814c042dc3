package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	stations "venue-timers/internal/stations/domain"
)

const defaultStationsTable = "stations"

// DBTX is the subset of *sql.DB / *sql.Tx used by the repository.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StationRepository reads and writes the station catalog in Postgres.
type StationRepository struct {
	db    DBTX
	table string
}

// StationOption configures the repository.
type StationOption func(*StationRepository)

// WithStationTable overrides the default table name.
func WithStationTable(table string) StationOption {
	return func(repo *StationRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewStationRepository constructs a repository.
func NewStationRepository(db DBTX, opts ...StationOption) *StationRepository {
	repo := &StationRepository{db: db, table: defaultStationsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ListStations implements stations.Source. Rows are returned in sort_order, id order.
func (r *StationRepository) ListStations(ctx context.Context) ([]stations.Station, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("station repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, name, category, rate_per_hour
FROM %s
WHERE enabled = TRUE
ORDER BY sort_order, id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stations.Station
	for rows.Next() {
		var (
			st       stations.Station
			category string
		)
		if err := rows.Scan(&st.ID, &st.Name, &category, &st.RatePerHour); err != nil {
			return nil, err
		}
		parsed, err := stations.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		st.Category = parsed
		out = append(out, st)
	}
	return out, rows.Err()
}

// Save upserts a station row.
func (r *StationRepository) Save(ctx context.Context, station stations.Station) error {
	if r == nil || r.db == nil {
		return errors.New("station repo: nil db")
	}
	if err := station.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	name,
	category,
	rate_per_hour,
	enabled
) VALUES (
	$1, $2, $3, $4, TRUE
)
ON CONFLICT (id)
DO UPDATE SET
	name = EXCLUDED.name,
	category = EXCLUDED.category,
	rate_per_hour = EXCLUDED.rate_per_hour,
	updated_at = NOW()`, r.table)

	_, err := r.db.ExecContext(ctx, query, station.ID, station.Name, string(station.Category), station.RatePerHour)
	return err
}
