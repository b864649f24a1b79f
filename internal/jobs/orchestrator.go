package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
	"github.com/ternarybob/takeoff/internal/services/detect"
	"github.com/ternarybob/takeoff/internal/services/report"
)

// Detector combines per-page detection with startup model verification
type Detector interface {
	interfaces.SymbolDetector

	// VerifyModel checks that the configured detection backend is usable
	// before any page is processed
	VerifyModel() error
}

// Orchestrator runs the takeoff pipeline for a single job: rasterize,
// detect, read symbols, extract the schedule, group, persist. Stage
// failures map to the job status machine; degraded stages log and
// continue.
type Orchestrator struct {
	config     *common.Config
	storage    interfaces.JobStorage
	rasterizer interfaces.Rasterizer
	detector   Detector
	reader     interfaces.SymbolReader
	extractor  interfaces.ScheduleExtractor
	summarizer interfaces.Summarizer
	reporter   *report.Service
	logger     arbor.ILogger
}

// NewOrchestrator creates a pipeline orchestrator
func NewOrchestrator(
	config *common.Config,
	storage interfaces.JobStorage,
	rasterizer interfaces.Rasterizer,
	detector Detector,
	reader interfaces.SymbolReader,
	extractor interfaces.ScheduleExtractor,
	summarizer interfaces.Summarizer,
	reporter *report.Service,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		config:     config,
		storage:    storage,
		rasterizer: rasterizer,
		detector:   detector,
		reader:     reader,
		extractor:  extractor,
		summarizer: summarizer,
		reporter:   reporter,
		logger:     logger,
	}
}

// Process runs the full pipeline for the given job
func (o *Orchestrator) Process(ctx context.Context, jobID string) {
	job, err := o.storage.GetJob(ctx, jobID)
	if err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("Cannot process unknown job")
		return
	}

	o.logger.Info().
		Str("job_id", jobID).
		Str("filename", job.Filename).
		Str("strategy", o.detector.Strategy()).
		Msg("Starting takeoff pipeline")

	if err := o.storage.UpdateJobStatus(ctx, jobID, models.JobStatusProcessing, "converting pages"); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to mark job processing")
		return
	}

	jobDir := filepath.Join(o.config.Storage.Filesystem.Output, jobID)
	pages, err := o.rasterizer.RasterizePages(ctx, job.SourcePath, filepath.Join(jobDir, "pages"))
	if err != nil {
		o.fail(ctx, jobID, fmt.Sprintf("page conversion failed: %v", err))
		return
	}

	if err := o.detector.VerifyModel(); err != nil {
		o.fail(ctx, jobID, fmt.Sprintf("detection model unavailable: %v", err))
		return
	}

	o.updateProgress(ctx, jobID, "extracting schedule")
	rulebook, err := o.extractor.Extract(ctx, job.SourcePath)
	if err != nil || rulebook == nil {
		// Schedule extraction degrades, it never fails the job
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("Schedule extraction degraded to empty rulebook")
		rulebook = &models.Rulebook{}
	}
	if err := o.storage.SaveRulebook(ctx, jobID, rulebook); err != nil {
		o.fail(ctx, jobID, fmt.Sprintf("failed to persist schedule: %v", err))
		return
	}

	o.updateProgress(ctx, jobID, "detecting symbols")
	detections := o.detectPages(ctx, job, pages, jobDir)

	if err := o.storage.SaveDetections(ctx, jobID, detections); err != nil {
		o.fail(ctx, jobID, fmt.Sprintf("failed to persist detections: %v", err))
		return
	}

	o.updateProgress(ctx, jobID, "grouping fixtures")
	summary, err := o.summarizer.Summarize(ctx, detections, rulebook)
	if err != nil {
		o.fail(ctx, jobID, fmt.Sprintf("fixture grouping failed: %v", err))
		return
	}

	// The result artifact must exist before the job reads as complete
	if err := o.storage.SaveSummary(ctx, jobID, summary); err != nil {
		o.fail(ctx, jobID, fmt.Sprintf("failed to persist result: %v", err))
		return
	}

	message := fmt.Sprintf("%d fixtures across %d pages", summary.Total(), len(pages))
	if err := o.storage.UpdateJobStatus(ctx, jobID, models.JobStatusComplete, message); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to mark job complete")
		return
	}

	o.logger.Info().
		Str("job_id", jobID).
		Int("pages", len(pages)).
		Int("detections", len(detections)).
		Int("fixtures", summary.Total()).
		Msg("Takeoff pipeline completed")

	if o.config.Report.Enabled {
		if _, err := o.reporter.WriteReport(jobDir, jobID, job.Filename, summary, rulebook); err != nil {
			o.logger.Warn().Err(err).Str("job_id", jobID).Msg("Report generation failed")
		}
	}
}

// detectPages runs detection and symbol reading over all drawing pages in
// parallel. Per-page errors skip that page; they never fail the job.
func (o *Orchestrator) detectPages(ctx context.Context, job *models.Job, pages []interfaces.PageImage, jobDir string) []models.Detection {
	var mu sync.Mutex
	var all []models.Detection

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers.PageConcurrency)

	for _, page := range pages {
		if isScheduleSheet(job.Filename) || isScheduleSheet(page.Path) {
			o.logger.Debug().
				Str("job_id", job.ID).
				Int("page", page.Number).
				Msg("Skipping schedule sheet for symbol detection")
			continue
		}

		g.Go(func() error {
			detections, err := o.detector.DetectPage(gctx, page)
			if err != nil {
				o.logger.Warn().
					Err(err).
					Str("job_id", job.ID).
					Int("page", page.Number).
					Msg("Page detection failed, skipping page")
				return nil
			}

			labeled := o.reader.ReadSymbols(gctx, page, detections)

			annotatedPath := filepath.Join(jobDir, "annotated", filepath.Base(page.Path))
			if err := os.MkdirAll(filepath.Dir(annotatedPath), 0o755); err == nil {
				if err := detect.AnnotatePage(page, labeled, annotatedPath); err != nil {
					o.logger.Warn().
						Err(err).
						Str("job_id", job.ID).
						Int("page", page.Number).
						Msg("Page annotation failed")
				}
			}

			mu.Lock()
			all = append(all, labeled...)
			mu.Unlock()
			return nil
		})
	}

	// Workers only return nil, Wait is for completion
	_ = g.Wait()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Page != all[j].Page {
			return all[i].Page < all[j].Page
		}
		if all[i].Box.Y1 != all[j].Box.Y1 {
			return all[i].Box.Y1 < all[j].Box.Y1
		}
		return all[i].Box.X1 < all[j].Box.X1
	})

	return all
}

func (o *Orchestrator) updateProgress(ctx context.Context, jobID, message string) {
	if err := o.storage.UpdateJobStatus(ctx, jobID, models.JobStatusProcessing, message); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to update job progress")
	}
}

func (o *Orchestrator) fail(ctx context.Context, jobID, message string) {
	o.logger.Error().Str("job_id", jobID).Str("error", message).Msg("Takeoff pipeline failed")
	if err := o.storage.UpdateJobStatus(ctx, jobID, models.JobStatusFailed, message); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to mark job failed")
	}
}

// isScheduleSheet reports whether a file name marks a schedule or legend
// sheet that should be excluded from symbol detection
func isScheduleSheet(name string) bool {
	lower := strings.ToLower(filepath.Base(name))
	return strings.Contains(lower, "schedule") || strings.Contains(lower, "legend")
}
