package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// JobStatus is the state of a scrape job.
type JobStatus string

// Scrape job statuses
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Valid reports whether s is one of the known job statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// ScrapeJob is one run of the ingestion pipeline. Jobs are never deleted.
type ScrapeJob struct {
	ID           uuid.UUID      `json:"id" validate:"required"`
	Status       JobStatus      `json:"status" validate:"required,oneof=pending running completed failed"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	TotalItems   int            `json:"total_items" validate:"gte=0"`
	TotalSellers int            `json:"total_sellers" validate:"gte=0"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"job_metadata,omitempty"`
}

// Validate validates the ScrapeJob using the validator.
func (j *ScrapeJob) Validate() error {
	validate := validator.New()
	return validate.Struct(j)
}

// Finished reports whether the job reached a terminal status.
func (j *ScrapeJob) Finished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
