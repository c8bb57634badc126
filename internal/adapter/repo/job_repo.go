package repo

import (
	"context"
	"fmt"

	"github.com/TheMarco/sora-renderer/internal/db"
	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/infra"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	db db.DBTX
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(db db.DBTX) *JobRepositoryPG {
	return &JobRepositoryPG{db: db}
}

const jobColumns = `id, model, resolution, duration_seconds, prompt, ref_image_id,
cost_estimate, COALESCE(remote_id, ''), status, error_message, created_at, updated_at`

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, model, resolution, duration_seconds, prompt, ref_image_id, cost_estimate, remote_id, status, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10);
`
	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.Model,
		job.Resolution,
		job.DurationSeconds,
		job.Prompt,
		job.RefImageID,
		job.CostEstimate,
		job.RemoteID,
		job.Status,
		job.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1;`, id)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// List returns all jobs, newest first.
func (r *JobRepositoryPG) List(ctx context.Context) ([]domain.Job, error) {
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC;`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListByStatus returns jobs in any of the given statuses, newest first. The
// scheduler recovery path uses it to find every non-terminal job on boot.
func (r *JobRepositoryPG) ListByStatus(ctx context.Context, statuses ...domain.JobStatus) ([]domain.Job, error) {
	set := make([]string, 0, len(statuses))
	for _, s := range statuses {
		set = append(set, string(s))
	}
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = ANY($1) ORDER BY created_at DESC;`, set)
	if err != nil {
		return nil, fmt.Errorf("list jobs by status: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// UpdateStatus applies a guarded status transition and reports whether a row
// changed. The WHERE clause enforces the state machine at the source of
// truth: rows already in a terminal state never match, so a late write can
// never resurrect a finished or canceled job.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) (bool, error) {
	query := `
UPDATE jobs
SET status = $2, error_message = $3, updated_at = now()
WHERE id = $1 AND status IN ('queued', 'running');
`
	tag, err := r.db.Exec(ctx, query, id, status, errMsg)
	if err != nil {
		return false, fmt.Errorf("update job status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a job row. Asset cleanup cascades in the asset repository.
func (r *JobRepositoryPG) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1;`, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// DeleteAll clears the jobs table. Used by the full reset.
func (r *JobRepositoryPG) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM jobs;`); err != nil {
		return fmt.Errorf("delete all jobs: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.Model,
		&job.Resolution,
		&job.DurationSeconds,
		&job.Prompt,
		&job.RefImageID,
		&job.CostEstimate,
		&job.RemoteID,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

func collectJobs(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]domain.Job, error) {
	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
