package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/takeoff/internal/common"
)

// Dispatcher feeds queued jobs to a fixed pool of pipeline workers.
// Submit never blocks: a full queue is reported to the caller instead of
// stalling the upload handler.
type Dispatcher struct {
	orchestrator *Orchestrator
	logger       arbor.ILogger
	queue        chan string
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	startOnce    sync.Once
	stopOnce     sync.Once
	concurrency  int
}

// NewDispatcher creates a job dispatcher with the configured worker pool
func NewDispatcher(config *common.WorkersConfig, orchestrator *Orchestrator, logger arbor.ILogger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		orchestrator: orchestrator,
		logger:       logger,
		queue:        make(chan string, config.QueueDepth),
		ctx:          ctx,
		cancel:       cancel,
		concurrency:  config.Concurrency,
	}
}

// Start launches the worker pool
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.logger.Info().
			Int("workers", d.concurrency).
			Int("queue_depth", cap(d.queue)).
			Msg("Starting job dispatcher")

		for i := 0; i < d.concurrency; i++ {
			d.wg.Add(1)
			go d.worker(i)
		}
	})
}

// Submit enqueues a job for processing. Returns an error when the queue
// is full or the dispatcher is shutting down.
func (d *Dispatcher) Submit(jobID string) error {
	select {
	case <-d.ctx.Done():
		return fmt.Errorf("dispatcher is shutting down")
	default:
	}

	select {
	case d.queue <- jobID:
		d.logger.Debug().Str("job_id", jobID).Msg("Job enqueued")
		return nil
	default:
		return fmt.Errorf("job queue is full (%d pending)", cap(d.queue))
	}
}

// Stop cancels in-flight work and shuts the pool down. Interrupted jobs
// are picked up later by the stale sweeper.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info().Msg("Stopping job dispatcher")
		d.cancel()
		close(d.queue)
		d.wg.Wait()
		d.logger.Info().Msg("Job dispatcher stopped")
	})
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for jobID := range d.queue {
		d.logger.Debug().
			Int("worker", id).
			Str("job_id", jobID).
			Msg("Worker picked up job")
		d.orchestrator.Process(d.ctx, jobID)
	}
}
