package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/takeoff/internal/models"
)

// JobListOptions controls job listing queries
type JobListOptions struct {
	Status   models.JobStatus
	Limit    int
	Offset   int
	OrderBy  string
	OrderDir string
}

// JobStorage persists jobs and their per-job pipeline artifacts.
// Status writes are atomic record swaps: a concurrent reader sees either
// the previous record or the new one, never a torn write.
type JobStorage interface {
	// SaveJob inserts or replaces a job record
	SaveJob(ctx context.Context, job *models.Job) error

	// GetJob returns the job with the given ID, or ErrJobNotFound
	GetJob(ctx context.Context, jobID string) (*models.Job, error)

	// ListJobs returns jobs matching the given options
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)

	// UpdateJobStatus moves a job to the given status with a progress
	// message. Transitions out of a terminal status are rejected. A move
	// to failed records message as the job error.
	UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, message string) error

	// GetStaleJobs returns processing jobs that have not been updated
	// within the given duration
	GetStaleJobs(ctx context.Context, olderThan time.Duration) ([]*models.Job, error)

	// CountJobsByStatus returns the number of jobs in the given status
	CountJobsByStatus(ctx context.Context, status models.JobStatus) (int, error)

	// DeleteJob removes a job and its artifacts. Absent jobs are a no-op.
	DeleteJob(ctx context.Context, jobID string) error

	// SaveRulebook stores the extracted schedule and notes for a job
	SaveRulebook(ctx context.Context, jobID string, rulebook *models.Rulebook) error

	// GetRulebook returns the stored rulebook, or ErrArtifactNotFound
	GetRulebook(ctx context.Context, jobID string) (*models.Rulebook, error)

	// SaveDetections stores the aggregated detections for a job
	SaveDetections(ctx context.Context, jobID string, detections []models.Detection) error

	// GetDetections returns the stored detections, or ErrArtifactNotFound
	GetDetections(ctx context.Context, jobID string) ([]models.Detection, error)

	// SaveSummary stores the final takeoff summary for a job
	SaveSummary(ctx context.Context, jobID string, summary models.Summary) error

	// GetSummary returns the stored summary, or ErrArtifactNotFound
	GetSummary(ctx context.Context, jobID string) (models.Summary, error)
}
