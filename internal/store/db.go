// Package store persists bulk jobs and their verification results in
// Postgres.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

// Job statuses.
const (
	JobPending   = "pending"
	JobCompleted = "completed"
)

var ErrJobNotFound = errors.New("job not found")

// Job tracks one bulk upload batch.
type Job struct {
	ID             string     `json:"job_id"`
	CustomerID     string     `json:"customer_id"`
	Status         string     `json:"status"`
	TotalCount     int        `json:"total_count"`
	ProcessedCount int        `json:"processed_count"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type Store struct {
	pool *pgxpool.Pool
}

// Open connects, pings, and creates the schema.
func Open(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	queryJobs := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		status TEXT NOT NULL,
		total_count INT DEFAULT 0,
		processed_count INT DEFAULT 0,
		created_at TIMESTAMP DEFAULT NOW(),
		completed_at TIMESTAMP
	);`

	// The full result goes into JSONB so signals can be re-analyzed later
	// without a schema change.
	queryResults := `
	CREATE TABLE IF NOT EXISTS results (
		id SERIAL PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES jobs(id),
		email TEXT NOT NULL,
		status TEXT NOT NULL,
		confidence INT NOT NULL,
		data JSONB NOT NULL,
		created_at TIMESTAMP DEFAULT NOW()
	);`

	if _, err := s.pool.Exec(ctx, queryJobs); err != nil {
		return fmt.Errorf("migration failed (jobs): %w", err)
	}
	if _, err := s.pool.Exec(ctx, queryResults); err != nil {
		return fmt.Errorf("migration failed (results): %w", err)
	}
	return nil
}

func (s *Store) CreateJob(ctx context.Context, id, customerID string, total int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (id, customer_id, status, total_count)
		VALUES ($1, $2, $3, $4)
	`, id, customerID, JobPending, total)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *Store) Job(ctx context.Context, id string) (*Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, customer_id, status, total_count, processed_count, created_at, completed_at
		FROM jobs WHERE id = $1
	`, id)

	var j Job
	err := row.Scan(&j.ID, &j.CustomerID, &j.Status, &j.TotalCount, &j.ProcessedCount, &j.CreatedAt, &j.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	return &j, nil
}

// SaveResult stores one verification outcome and advances the job
// counter in the same transaction. The job flips to completed when the
// last address lands.
func (s *Store) SaveResult(ctx context.Context, jobID string, res *models.VerifyResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO results (job_id, email, status, confidence, data)
		VALUES ($1, $2, $3, $4, $5)
	`, jobID, res.Email, string(res.Status), res.Confidence, raw); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE jobs
		SET processed_count = processed_count + 1,
		    status = CASE
		        WHEN processed_count + 1 >= total_count THEN 'completed'
		        ELSE status
		    END,
		    completed_at = CASE
		        WHEN processed_count + 1 >= total_count THEN NOW()
		        ELSE completed_at
		    END
		WHERE id = $1
	`, jobID); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Results returns every stored outcome for a job in insertion order.
func (s *Store) Results(ctx context.Context, jobID string) ([]models.VerifyResult, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM results WHERE job_id = $1 ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	defer rows.Close()

	var out []models.VerifyResult
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var res models.VerifyResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
