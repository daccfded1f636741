package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mkoehler/docsort/internal/core/domain"
)

// JobRepository persists batch jobs with their task list as one JSONB column.
// The processor saves after every task transition, so writes are whole-row
// replacements keyed by job id.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS batch_jobs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	tasks JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ,
	finished_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batch_jobs_status ON batch_jobs(status);
CREATE INDEX IF NOT EXISTS idx_batch_jobs_created_at ON batch_jobs(created_at DESC);

CREATE TABLE IF NOT EXISTS workflow_rules (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	conditions JSONB NOT NULL DEFAULT '[]'::jsonb,
	actions JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *JobRepository) Create(ctx context.Context, job *domain.BatchJob) error {
	tasksJSON, err := json.Marshal(job.Tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO batch_jobs (id, name, status, tasks, created_at, started_at, finished_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, job.ID, job.Name, string(job.Status), tasksJSON, job.CreatedAt, job.StartedAt, job.FinishedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Save(ctx context.Context, job *domain.BatchJob) error {
	tasksJSON, err := json.Marshal(job.Tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	// A stored cancelled status wins over the caller's in-memory status. The
	// api process cancels a worker-run job by writing it, and the worker's
	// per-task saves must not revive the job.
	result, err := r.db.ExecContext(ctx, `
UPDATE batch_jobs
SET status = CASE WHEN status = 'cancelled' THEN status ELSE $2 END,
    tasks = $3, started_at = $4, finished_at = $5, updated_at = $6
WHERE id = $1
`, job.ID, string(job.Status), tasksJSON, job.StartedAt, job.FinishedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrJobNotFound, "update job", fmt.Errorf("id=%s", job.ID))
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.BatchJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, status, tasks, created_at, started_at, finished_at
FROM batch_jobs
WHERE id = $1
`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return &job, nil
}

func (r *JobRepository) List(ctx context.Context, status domain.JobStatus) ([]domain.BatchJob, error) {
	query := `
SELECT id, name, status, tasks, created_at, started_at, finished_at
FROM batch_jobs
`
	var args []any
	if status != "" {
		query += "WHERE status = $1\n"
		args = append(args, string(status))
	}
	query += "ORDER BY created_at DESC"

	return r.queryJobs(ctx, query, args...)
}

func (r *JobRepository) ListUnfinished(ctx context.Context) ([]domain.BatchJob, error) {
	return r.queryJobs(ctx, `
SELECT id, name, status, tasks, created_at, started_at, finished_at
FROM batch_jobs
WHERE status IN ($1, $2)
ORDER BY created_at
`, string(domain.JobPending), string(domain.JobRunning))
}

func (r *JobRepository) queryJobs(ctx context.Context, query string, args ...any) ([]domain.BatchJob, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.BatchJob, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

type jobScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row jobScanner) (domain.BatchJob, error) {
	var job domain.BatchJob
	var status string
	var tasksRaw []byte
	err := row.Scan(
		&job.ID,
		&job.Name,
		&status,
		&tasksRaw,
		&job.CreatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	)
	if err != nil {
		return domain.BatchJob{}, err
	}
	if err := json.Unmarshal(tasksRaw, &job.Tasks); err != nil {
		return domain.BatchJob{}, fmt.Errorf("unmarshal tasks: %w", err)
	}
	job.Status = domain.JobStatus(status)
	return job, nil
}
