package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/models"
	badgerstore "github.com/ternarybob/takeoff/internal/storage/badger"
)

func newSweeperStorage(t *testing.T) *badgerstore.JobStorage {
	t.Helper()

	logger := arbor.NewLogger()
	db, err := badgerstore.NewBadgerDB(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "badger"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return badgerstore.NewJobStorage(db, logger)
}

func TestSweepFailsStaleProcessingJobs(t *testing.T) {
	storage := newSweeperStorage(t)
	ctx := context.Background()

	// A processing job whose last update is far in the past
	stale := models.NewJob("job_stale", "plan.pdf", "/tmp/plan.pdf")
	require.NoError(t, storage.SaveJob(ctx, stale))
	require.NoError(t, storage.UpdateJobStatus(ctx, "job_stale", models.JobStatusProcessing, "working"))
	time.Sleep(20 * time.Millisecond)

	fresh := models.NewJob("job_queued", "plan.pdf", "/tmp/plan.pdf")
	require.NoError(t, storage.SaveJob(ctx, fresh))

	sweeper, err := NewSweeper(&common.JobsConfig{
		StaleAfter:    "10ms",
		SweepSchedule: "*/5 * * * *",
	}, storage, arbor.NewLogger())
	require.NoError(t, err)

	sweeper.Sweep()

	job, err := storage.GetJob(ctx, "job_stale")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "job stalled")

	// Queued jobs are never swept
	job, err = storage.GetJob(ctx, "job_queued")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, job.Status)
}

func TestNewSweeperRejectsBadDuration(t *testing.T) {
	storage := newSweeperStorage(t)

	_, err := NewSweeper(&common.JobsConfig{
		StaleAfter:    "soon",
		SweepSchedule: "*/5 * * * *",
	}, storage, arbor.NewLogger())
	assert.Error(t, err)
}

func TestDispatcherSubmitQueueFull(t *testing.T) {
	dispatcher := NewDispatcher(&common.WorkersConfig{
		Concurrency: 1,
		QueueDepth:  1,
	}, nil, arbor.NewLogger())

	// Workers are not started, so the second submit finds a full queue
	require.NoError(t, dispatcher.Submit("job_1"))
	assert.Error(t, dispatcher.Submit("job_2"))
}

func TestDispatcherSubmitAfterStop(t *testing.T) {
	dispatcher := NewDispatcher(&common.WorkersConfig{
		Concurrency: 1,
		QueueDepth:  4,
	}, nil, arbor.NewLogger())

	dispatcher.Start()
	dispatcher.Stop()

	assert.Error(t, dispatcher.Submit("job_late"))
}
