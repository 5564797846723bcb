package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/catalog-tracker/internal/types"
)

// UpsertScrapeJob records a scrape job, refreshing its progress when it exists.
func (t *passTx) UpsertScrapeJob(ctx context.Context, job *types.ScrapeJob) error {
	meta := job.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal job metadata: %w", err)
	}

	_, err = t.tx.Exec(ctx,
		`INSERT INTO scrape_jobs (id, status, started_at, completed_at, total_items,
		                          total_sellers, error_message, job_metadata)
		 VALUES ($1, $2, COALESCE($3, NOW()), $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		     status = EXCLUDED.status,
		     completed_at = EXCLUDED.completed_at,
		     total_items = EXCLUDED.total_items,
		     total_sellers = EXCLUDED.total_sellers,
		     error_message = EXCLUDED.error_message,
		     job_metadata = EXCLUDED.job_metadata`,
		job.ID, string(job.Status), nullIfZero(job.StartedAt), job.CompletedAt,
		job.TotalItems, job.TotalSellers, job.ErrorMessage, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert scrape job %s: %w", job.ID, classify(err))
	}
	return nil
}

// GetScrapeJob retrieves a scrape job by ID
func (db *DB) GetScrapeJob(ctx context.Context, id uuid.UUID) (*types.ScrapeJob, error) {
	job, err := scanScrapeJob(db.pool.QueryRow(ctx,
		`SELECT `+scrapeJobColumns+` FROM scrape_jobs WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scrape job: %w", err)
	}
	return job, nil
}

// ListScrapeJobs retrieves recent scrape jobs
func (db *DB) ListScrapeJobs(ctx context.Context, limit int) ([]types.ScrapeJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+scrapeJobColumns+` FROM scrape_jobs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrape jobs: %w", classify(err))
	}
	defer rows.Close()

	var jobs []types.ScrapeJob
	for rows.Next() {
		job, err := scanScrapeJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scrape job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

const scrapeJobColumns = `id, status, started_at, completed_at, total_items, total_sellers, error_message, job_metadata`

func scanScrapeJob(row pgx.Row) (*types.ScrapeJob, error) {
	var job types.ScrapeJob
	var status string
	var meta []byte
	if err := row.Scan(&job.ID, &status, &job.StartedAt, &job.CompletedAt, &job.TotalItems,
		&job.TotalSellers, &job.ErrorMessage, &meta); err != nil {
		return nil, err
	}
	job.Status = types.JobStatus(status)
	if !job.Status.Valid() {
		return nil, fmt.Errorf("scrape job %s has unknown status %q", job.ID, status)
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &job.Metadata)
	}
	return &job, nil
}

func nullIfZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
