package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// rulebookRecord wraps a job's extracted schedule and notes for storage
type rulebookRecord struct {
	JobID    string `badgerhold:"key"`
	Rulebook models.Rulebook
	SavedAt  time.Time
}

// detectionsRecord wraps a job's aggregated detections for storage
type detectionsRecord struct {
	JobID      string `badgerhold:"key"`
	Detections []models.Detection
	SavedAt    time.Time
}

// summaryRecord wraps a job's final summary for storage
type summaryRecord struct {
	JobID   string `badgerhold:"key"`
	Summary models.Summary
	SavedAt time.Time
}

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.JobStorage = (*JobStorage)(nil)

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) *JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	job.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", common.ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
		if opts.OrderBy != "" {
			if opts.OrderDir == "DESC" {
				query = query.SortBy(opts.OrderBy).Reverse()
			} else {
				query = query.SortBy(opts.OrderBy)
			}
		} else {
			query = query.SortBy("CreatedAt").Reverse()
		}
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// UpdateJobStatus moves a job through its lifecycle. Terminal statuses
// are sticky: once a job is failed or complete, further transitions are
// rejected rather than applied.
func (s *JobStorage) UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, message string) error {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: %s", common.ErrJobNotFound, jobID)
		}
		return fmt.Errorf("failed to get job: %w", err)
	}

	if job.Status != status && !job.Status.CanTransition(status) {
		return fmt.Errorf("illegal status transition for %s: %s -> %s", jobID, job.Status, status)
	}

	now := time.Now()
	job.Status = status
	job.Message = message
	if status == models.JobStatusProcessing && job.StartedAt == nil {
		job.StartedAt = &now
	}
	if status.IsTerminal() {
		job.CompletedAt = &now
	}
	if status == models.JobStatusFailed {
		job.Error = message
	}

	return s.SaveJob(ctx, &job)
}

func (s *JobStorage) GetStaleJobs(ctx context.Context, olderThan time.Duration) ([]*models.Job, error) {
	threshold := time.Now().Add(-olderThan)
	var jobs []models.Job
	err := s.db.Store().Find(&jobs, badgerhold.Where("Status").Eq(models.JobStatusProcessing).And("UpdatedAt").Lt(threshold))
	if err != nil {
		return nil, fmt.Errorf("failed to find stale jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) CountJobsByStatus(ctx context.Context, status models.JobStatus) (int, error) {
	count, err := s.db.Store().Count(&models.Job{}, badgerhold.Where("Status").Eq(status))
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, jobID string) error {
	if err := s.db.Store().Delete(jobID, &models.Job{}); err != nil && err != badgerhold.ErrNotFound {
		return err
	}
	for _, record := range []interface{}{&rulebookRecord{}, &detectionsRecord{}, &summaryRecord{}} {
		if err := s.db.Store().Delete(jobID, record); err != nil && err != badgerhold.ErrNotFound {
			return err
		}
	}
	return nil
}

func (s *JobStorage) SaveRulebook(ctx context.Context, jobID string, rulebook *models.Rulebook) error {
	if rulebook == nil {
		return fmt.Errorf("rulebook is required")
	}
	record := rulebookRecord{
		JobID:    jobID,
		Rulebook: *rulebook,
		SavedAt:  time.Now(),
	}
	if err := s.db.Store().Upsert(jobID, &record); err != nil {
		return fmt.Errorf("failed to save rulebook: %w", err)
	}
	return nil
}

func (s *JobStorage) GetRulebook(ctx context.Context, jobID string) (*models.Rulebook, error) {
	var record rulebookRecord
	if err := s.db.Store().Get(jobID, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: rulebook for %s", common.ErrArtifactNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get rulebook: %w", err)
	}
	return &record.Rulebook, nil
}

func (s *JobStorage) SaveDetections(ctx context.Context, jobID string, detections []models.Detection) error {
	record := detectionsRecord{
		JobID:      jobID,
		Detections: detections,
		SavedAt:    time.Now(),
	}
	if err := s.db.Store().Upsert(jobID, &record); err != nil {
		return fmt.Errorf("failed to save detections: %w", err)
	}
	return nil
}

func (s *JobStorage) GetDetections(ctx context.Context, jobID string) ([]models.Detection, error) {
	var record detectionsRecord
	if err := s.db.Store().Get(jobID, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: detections for %s", common.ErrArtifactNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get detections: %w", err)
	}
	return record.Detections, nil
}

func (s *JobStorage) SaveSummary(ctx context.Context, jobID string, summary models.Summary) error {
	if summary == nil {
		return fmt.Errorf("summary is required")
	}
	record := summaryRecord{
		JobID:   jobID,
		Summary: summary,
		SavedAt: time.Now(),
	}
	if err := s.db.Store().Upsert(jobID, &record); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

func (s *JobStorage) GetSummary(ctx context.Context, jobID string) (models.Summary, error) {
	var record summaryRecord
	if err := s.db.Store().Get(jobID, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: summary for %s", common.ErrArtifactNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return record.Summary, nil
}
