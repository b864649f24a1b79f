package jobs

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
	"github.com/ternarybob/takeoff/internal/services/report"
	badgerstore "github.com/ternarybob/takeoff/internal/storage/badger"
)

type fakeRasterizer struct {
	pages []interfaces.PageImage
	err   error
}

func (f *fakeRasterizer) RasterizePages(ctx context.Context, sourcePath, outDir string) ([]interfaces.PageImage, error) {
	return f.pages, f.err
}

type fakeDetector struct {
	detections map[int][]models.Detection
	pageErrs   map[int]error
	verifyErr  error
}

func (f *fakeDetector) DetectPage(ctx context.Context, page interfaces.PageImage) ([]models.Detection, error) {
	if err := f.pageErrs[page.Number]; err != nil {
		return nil, err
	}
	return f.detections[page.Number], nil
}

func (f *fakeDetector) Strategy() string   { return "heuristic" }
func (f *fakeDetector) VerifyModel() error { return f.verifyErr }

// fakeReader labels every detection with a fixed symbol
type fakeReader struct {
	symbol string
}

func (f *fakeReader) ReadSymbols(ctx context.Context, page interfaces.PageImage, detections []models.Detection) []models.Detection {
	for i := range detections {
		s := f.symbol
		detections[i].Symbol = &s
	}
	return detections
}

type fakeExtractor struct {
	rulebook *models.Rulebook
	err      error
}

func (f *fakeExtractor) Extract(ctx context.Context, sourcePath string) (*models.Rulebook, error) {
	return f.rulebook, f.err
}

type fakeSummarizer struct {
	summary models.Summary
	err     error
	calls   int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, detections []models.Detection, rulebook *models.Rulebook) (models.Summary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.summary != nil {
		return f.summary, nil
	}
	summary := models.Summary{}
	for _, det := range detections {
		if det.Symbol == nil {
			continue
		}
		item := summary[*det.Symbol]
		item.Count++
		summary[*det.Symbol] = item
	}
	return summary, nil
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	storage      interfaces.JobStorage
	summarizer   *fakeSummarizer
	config       *common.Config
}

func newFixture(t *testing.T, rasterizer interfaces.Rasterizer, detector Detector, extractor interfaces.ScheduleExtractor, summarizer *fakeSummarizer) *orchestratorFixture {
	t.Helper()

	logger := arbor.NewLogger()
	config := common.NewDefaultConfig()
	config.Storage.Badger.Path = filepath.Join(t.TempDir(), "badger")
	config.Storage.Filesystem.Uploads = filepath.Join(t.TempDir(), "uploads")
	config.Storage.Filesystem.Output = filepath.Join(t.TempDir(), "output")
	config.Report.Enabled = false
	config.Workers.PageConcurrency = 2

	db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	storage := badgerstore.NewJobStorage(db, logger)

	orchestrator := NewOrchestrator(
		config,
		storage,
		rasterizer,
		detector,
		&fakeReader{symbol: "A1"},
		extractor,
		summarizer,
		report.NewService(logger),
		logger,
	)

	return &orchestratorFixture{
		orchestrator: orchestrator,
		storage:      storage,
		summarizer:   summarizer,
		config:       config,
	}
}

// writePages renders blank page PNGs so annotation has real files to read
func writePages(t *testing.T, count int) []interfaces.PageImage {
	t.Helper()

	dir := t.TempDir()
	pages := make([]interfaces.PageImage, 0, count)
	for i := 1; i <= count; i++ {
		img := image.NewGray(image.Rect(0, 0, 50, 50))
		for p := range img.Pix {
			img.Pix[p] = 255
		}
		path := filepath.Join(dir, fmt.Sprintf("page_%03d.png", i))
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
		pages = append(pages, interfaces.PageImage{Number: i, Path: path})
	}
	return pages
}

func seedJob(t *testing.T, storage interfaces.JobStorage, id string) {
	t.Helper()
	require.NoError(t, storage.SaveJob(context.Background(), models.NewJob(id, "plan.pdf", "/tmp/plan.pdf")))
}

func TestProcessCompletesJob(t *testing.T) {
	pages := writePages(t, 2)
	detector := &fakeDetector{
		detections: map[int][]models.Detection{
			1: {
				{Page: 1, Box: models.BoundingBox{X1: 10, Y1: 10, X2: 30, Y2: 30}, Confidence: 0.9},
				{Page: 1, Box: models.BoundingBox{X1: 40, Y1: 10, X2: 60, Y2: 30}, Confidence: 0.8},
			},
			2: {
				{Page: 2, Box: models.BoundingBox{X1: 5, Y1: 5, X2: 25, Y2: 25}, Confidence: 0.95},
			},
		},
	}
	extractor := &fakeExtractor{rulebook: &models.Rulebook{
		Schedule: []models.ScheduleEntry{{Symbol: "A1", Description: "Troffer"}},
	}}

	f := newFixture(t, &fakeRasterizer{pages: pages}, detector, extractor, &fakeSummarizer{})
	seedJob(t, f.storage, "job_ok")

	f.orchestrator.Process(context.Background(), "job_ok")

	ctx := context.Background()
	job, err := f.storage.GetJob(ctx, "job_ok")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusComplete, job.Status)
	assert.Equal(t, "3 fixtures across 2 pages", job.Message)

	// Complete implies a stored result
	summary, err := f.storage.GetSummary(ctx, "job_ok")
	require.NoError(t, err)
	assert.Equal(t, 3, summary["A1"].Count)

	detections, err := f.storage.GetDetections(ctx, "job_ok")
	require.NoError(t, err)
	assert.Len(t, detections, 3)

	rulebook, err := f.storage.GetRulebook(ctx, "job_ok")
	require.NoError(t, err)
	assert.Len(t, rulebook.Schedule, 1)
}

func TestProcessFailsWhenNoPages(t *testing.T) {
	f := newFixture(t,
		&fakeRasterizer{err: fmt.Errorf("%w: no pages produced", common.ErrConversionFailed)},
		&fakeDetector{},
		&fakeExtractor{rulebook: &models.Rulebook{}},
		&fakeSummarizer{},
	)
	seedJob(t, f.storage, "job_nopages")

	f.orchestrator.Process(context.Background(), "job_nopages")

	job, err := f.storage.GetJob(context.Background(), "job_nopages")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "page conversion failed")
}

func TestProcessFailsWhenModelMissing(t *testing.T) {
	pages := writePages(t, 1)
	f := newFixture(t,
		&fakeRasterizer{pages: pages},
		&fakeDetector{verifyErr: fmt.Errorf("%w: weights not found", common.ErrModelUnavailable)},
		&fakeExtractor{rulebook: &models.Rulebook{}},
		&fakeSummarizer{},
	)
	seedJob(t, f.storage, "job_nomodel")

	f.orchestrator.Process(context.Background(), "job_nomodel")

	job, err := f.storage.GetJob(context.Background(), "job_nomodel")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "detection model unavailable")
	// The pipeline never reached grouping
	assert.Equal(t, 0, f.summarizer.calls)
}

func TestProcessScheduleFailureDegrades(t *testing.T) {
	pages := writePages(t, 1)
	f := newFixture(t,
		&fakeRasterizer{pages: pages},
		&fakeDetector{detections: map[int][]models.Detection{
			1: {{Page: 1, Box: models.BoundingBox{X1: 10, Y1: 10, X2: 30, Y2: 30}, Confidence: 0.9}},
		}},
		&fakeExtractor{err: fmt.Errorf("content stream unreadable")},
		&fakeSummarizer{},
	)
	seedJob(t, f.storage, "job_nosched")

	f.orchestrator.Process(context.Background(), "job_nosched")

	ctx := context.Background()
	job, err := f.storage.GetJob(ctx, "job_nosched")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusComplete, job.Status)

	rulebook, err := f.storage.GetRulebook(ctx, "job_nosched")
	require.NoError(t, err)
	assert.Empty(t, rulebook.Schedule)
	assert.Empty(t, rulebook.Notes)
}

func TestProcessPageDetectionFailureSkipsPage(t *testing.T) {
	pages := writePages(t, 2)
	f := newFixture(t,
		&fakeRasterizer{pages: pages},
		&fakeDetector{
			detections: map[int][]models.Detection{
				2: {{Page: 2, Box: models.BoundingBox{X1: 10, Y1: 10, X2: 30, Y2: 30}, Confidence: 0.9}},
			},
			pageErrs: map[int]error{1: fmt.Errorf("corrupt page image")},
		},
		&fakeExtractor{rulebook: &models.Rulebook{}},
		&fakeSummarizer{},
	)
	seedJob(t, f.storage, "job_badpage")

	f.orchestrator.Process(context.Background(), "job_badpage")

	ctx := context.Background()
	job, err := f.storage.GetJob(ctx, "job_badpage")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusComplete, job.Status)

	detections, err := f.storage.GetDetections(ctx, "job_badpage")
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, 2, detections[0].Page)
}

func TestProcessSummarizerFailureFailsJob(t *testing.T) {
	pages := writePages(t, 1)
	f := newFixture(t,
		&fakeRasterizer{pages: pages},
		&fakeDetector{detections: map[int][]models.Detection{
			1: {{Page: 1, Box: models.BoundingBox{X1: 10, Y1: 10, X2: 30, Y2: 30}, Confidence: 0.9}},
		}},
		&fakeExtractor{rulebook: &models.Rulebook{}},
		&fakeSummarizer{err: fmt.Errorf("%w: provider timeout", common.ErrSummarizationFailed)},
	)
	seedJob(t, f.storage, "job_nollm")

	f.orchestrator.Process(context.Background(), "job_nollm")

	ctx := context.Background()
	job, err := f.storage.GetJob(ctx, "job_nollm")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "fixture grouping failed")

	// No result artifact for a failed job
	_, err = f.storage.GetSummary(ctx, "job_nollm")
	assert.ErrorIs(t, err, common.ErrArtifactNotFound)
}

func TestProcessNoDetectionsStillCompletes(t *testing.T) {
	pages := writePages(t, 1)
	f := newFixture(t,
		&fakeRasterizer{pages: pages},
		&fakeDetector{},
		&fakeExtractor{rulebook: &models.Rulebook{}},
		&fakeSummarizer{},
	)
	seedJob(t, f.storage, "job_empty")

	f.orchestrator.Process(context.Background(), "job_empty")

	ctx := context.Background()
	job, err := f.storage.GetJob(ctx, "job_empty")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusComplete, job.Status)
	assert.Equal(t, "0 fixtures across 1 pages", job.Message)

	summary, err := f.storage.GetSummary(ctx, "job_empty")
	require.NoError(t, err)
	assert.Empty(t, summary)
}
