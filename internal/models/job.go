package models

import (
	"encoding/json"
	"time"
)

// JobStatus represents the lifecycle state of a takeoff job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusFailed     JobStatus = "failed"
	JobStatusComplete   JobStatus = "complete"
)

// IsTerminal reports whether the status is final. Terminal jobs never
// change state again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFailed || s == JobStatusComplete
}

// CanTransition reports whether a move from s to next is legal.
// The lifecycle is forward-only: queued -> processing -> failed|complete.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case JobStatusQueued:
		return next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusProcessing || next == JobStatusFailed || next == JobStatusComplete
	}
	return false
}

// Job represents a single blueprint takeoff job
type Job struct {
	ID          string     `json:"job_id" badgerhold:"key"`
	Filename    string     `json:"original_filename"`
	SourcePath  string     `json:"-"`
	Status      JobStatus  `json:"status" badgerhold:"index"`
	Message     string     `json:"message,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a queued job for an uploaded blueprint
func NewJob(id, filename, sourcePath string) *Job {
	now := time.Now()
	return &Job{
		ID:         id,
		Filename:   filename,
		SourcePath: sourcePath,
		Status:     JobStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ToJSON serializes the job to JSON
func (j *Job) ToJSON() (string, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// JobFromJSON deserializes a job from JSON
func JobFromJSON(data string) (*Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
