// Package history archives evaluated gate runs in PostgreSQL. Storage and
// retrieval only; comparing runs is left to whoever reads the archive.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/avtr-nvivas/check-jtl/internal/report"
)

// Store persists evaluated runs.
type Store struct {
	db *sql.DB
}

// Run is one archived gate run, also served by the /api/v1/runs endpoint.
type Run struct {
	ID           string    `json:"id"`
	TestName     string    `json:"test_name"`
	RunAt        time.Time `json:"run_at"`
	SamplesTotal int64     `json:"samples_total"`
	SamplesKO    int64     `json:"samples_ko"`
	HTTP500      int64     `json:"http_500"`
	ErrorPct     float64   `json:"error_pct"`
	TPS          float64   `json:"tps"`
	AvgRTMs      float64   `json:"avg_rt_ms"`
	P90RTMs      float64   `json:"p90_rt_ms"`
	P95RTMs      float64   `json:"p95_rt_ms"`
	Passed       bool      `json:"sla_passed"`
	Reasons      []string  `json:"sla_reasons"`
	CreatedAt    time.Time `json:"created_at"`
}

// Open connects to the archive database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the archive table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS sla_runs (
		id VARCHAR(36) PRIMARY KEY,
		test_name VARCHAR(255) NOT NULL,
		run_at TIMESTAMP NOT NULL,
		samples_total BIGINT NOT NULL,
		samples_ko BIGINT NOT NULL,
		http_500 BIGINT NOT NULL,
		error_pct DOUBLE PRECISION NOT NULL,
		tps DOUBLE PRECISION NOT NULL,
		avg_rt_ms DOUBLE PRECISION NOT NULL,
		p90_rt_ms DOUBLE PRECISION NOT NULL,
		p95_rt_ms DOUBLE PRECISION NOT NULL,
		sla_passed BOOLEAN NOT NULL,
		sla_reasons TEXT[] NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// SaveRun inserts one evaluated run under the given run ID.
func (s *Store) SaveRun(ctx context.Context, runID string, sum *report.Summary) error {
	runAt, err := time.Parse(time.RFC3339, sum.Timestamp)
	if err != nil {
		runAt = time.Now().UTC()
	}

	query := `INSERT INTO sla_runs (
		id, test_name, run_at, samples_total, samples_ko, http_500,
		error_pct, tps, avg_rt_ms, p90_rt_ms, p95_rt_ms,
		sla_passed, sla_reasons
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = s.db.ExecContext(ctx, query,
		runID, sum.TestName, runAt, sum.SamplesTotal, sum.SamplesKO, sum.HTTP500,
		sum.ErrorPct, sum.TPS, sum.AvgRTMs, sum.P90RTMs, sum.P95RTMs,
		sum.SLAPassed, pq.Array(sum.SLAReasons),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// RecentRuns returns the newest archived runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, test_name, run_at, samples_total, samples_ko, http_500,
		error_pct, tps, avg_rt_ms, p90_rt_ms, p95_rt_ms,
		sla_passed, sla_reasons, created_at
	FROM sla_runs ORDER BY created_at DESC, id LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var reasons pq.StringArray
		err := rows.Scan(
			&r.ID, &r.TestName, &r.RunAt, &r.SamplesTotal, &r.SamplesKO, &r.HTTP500,
			&r.ErrorPct, &r.TPS, &r.AvgRTMs, &r.P90RTMs, &r.P95RTMs,
			&r.Passed, &reasons, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Reasons = []string(reasons)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
