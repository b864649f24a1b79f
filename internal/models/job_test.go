package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{name: "queued to processing", from: JobStatusQueued, to: JobStatusProcessing, want: true},
		{name: "queued to failed", from: JobStatusQueued, to: JobStatusFailed, want: true},
		{name: "queued to complete skips processing", from: JobStatusQueued, to: JobStatusComplete, want: false},
		{name: "processing to processing for progress updates", from: JobStatusProcessing, to: JobStatusProcessing, want: true},
		{name: "processing to complete", from: JobStatusProcessing, to: JobStatusComplete, want: true},
		{name: "processing to failed", from: JobStatusProcessing, to: JobStatusFailed, want: true},
		{name: "processing back to queued", from: JobStatusProcessing, to: JobStatusQueued, want: false},
		{name: "complete is terminal", from: JobStatusComplete, to: JobStatusProcessing, want: false},
		{name: "complete to failed", from: JobStatusComplete, to: JobStatusFailed, want: false},
		{name: "failed is terminal", from: JobStatusFailed, to: JobStatusQueued, want: false},
		{name: "failed to complete", from: JobStatusFailed, to: JobStatusComplete, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	assert.False(t, JobStatusQueued.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.True(t, JobStatusComplete.IsTerminal())
}

func TestNewJob(t *testing.T) {
	job := NewJob("job_abc", "floorplan.pdf", "/tmp/uploads/job_abc.pdf")

	assert.Equal(t, "job_abc", job.ID)
	assert.Equal(t, "floorplan.pdf", job.Filename)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestJobJSONRoundTrip(t *testing.T) {
	job := NewJob("job_abc", "floorplan.pdf", "/tmp/uploads/job_abc.pdf")
	job.Status = JobStatusProcessing
	job.Message = "detecting symbols"

	data, err := job.ToJSON()
	assert.NoError(t, err)
	// Internal file paths stay out of API payloads
	assert.NotContains(t, string(data), "/tmp/uploads")

	restored, err := JobFromJSON(data)
	assert.NoError(t, err)
	assert.Equal(t, job.ID, restored.ID)
	assert.Equal(t, JobStatusProcessing, restored.Status)
	assert.Equal(t, "detecting symbols", restored.Message)
}

func TestBoundingBoxGeometry(t *testing.T) {
	box := BoundingBox{X1: 10, Y1: 20, X2: 40, Y2: 80}
	assert.Equal(t, 30.0, box.Width())
	assert.Equal(t, 60.0, box.Height())
	assert.Equal(t, 1800.0, box.Area())
}
