package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/handlers"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/jobs"
	"github.com/ternarybob/takeoff/internal/services/detect"
	"github.com/ternarybob/takeoff/internal/services/export"
	"github.com/ternarybob/takeoff/internal/services/grouper"
	"github.com/ternarybob/takeoff/internal/services/llm"
	"github.com/ternarybob/takeoff/internal/services/ocr"
	"github.com/ternarybob/takeoff/internal/services/rasterize"
	"github.com/ternarybob/takeoff/internal/services/report"
	"github.com/ternarybob/takeoff/internal/services/schedule"
	"github.com/ternarybob/takeoff/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB         *badger.BadgerDB
	JobStorage interfaces.JobStorage

	// Pipeline services
	Rasterizer    *rasterize.Service
	Detector      *detect.Service
	SymbolReader  *ocr.Reader
	Extractor     *schedule.Service
	LLMService    interfaces.LLMService
	Summarizer    *grouper.Service
	ReportService *report.Service
	ExportService *export.Service

	// Job execution
	Orchestrator *jobs.Orchestrator
	Dispatcher   *jobs.Dispatcher
	Sweeper      *jobs.Sweeper

	// HTTP handlers
	BlueprintHandler *handlers.BlueprintHandler
	StatusHandler    *handlers.StatusHandler
}

// New creates the application with all services wired
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := a.initStorage(); err != nil {
		return nil, fmt.Errorf("storage initialization failed: %w", err)
	}

	if err := a.initServices(); err != nil {
		a.Close()
		return nil, fmt.Errorf("service initialization failed: %w", err)
	}

	a.initHandlers()

	a.Dispatcher.Start()
	if err := a.Sweeper.Start(); err != nil {
		a.Close()
		return nil, fmt.Errorf("sweeper startup failed: %w", err)
	}

	logger.Info().
		Str("strategy", a.Detector.Strategy()).
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Msg("Application initialized")

	return a, nil
}

func (a *App) initStorage() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.JobStorage = badger.NewJobStorage(db, a.Logger)
	return nil
}

func (a *App) initServices() error {
	a.Rasterizer = rasterize.NewService(&a.Config.Rasterizer, a.Logger)

	detectorTimeout := parseDuration(a.Config.Detector.Timeout, 60*time.Second)
	var inference interfaces.InferenceClient
	if a.Config.Detector.Endpoint != "" {
		inference = detect.NewHTTPInferenceClient(
			a.Config.Detector.Endpoint,
			a.Config.Detector.Confidence,
			detectorTimeout,
			a.Logger,
		)
	}
	a.Detector = detect.NewService(&a.Config.Detector, inference, a.Logger)

	ocrTimeout := parseDuration(a.Config.OCR.Timeout, 15*time.Second)
	var recognizer interfaces.TextRecognizer
	if a.Config.OCR.Endpoint != "" {
		recognizer = ocr.NewHTTPRecognizer(a.Config.OCR.Endpoint, ocrTimeout, a.Logger)
	}
	a.SymbolReader = ocr.NewReader(&a.Config.OCR, recognizer, a.Logger)

	a.Extractor = schedule.NewService(a.Logger)

	llmService, err := llm.NewLLMService(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("LLM service: %w", err)
	}
	a.LLMService = llmService

	summarizer, err := grouper.NewService(a.LLMService, a.Logger)
	if err != nil {
		return fmt.Errorf("grouper service: %w", err)
	}
	a.Summarizer = summarizer

	a.ReportService = report.NewService(a.Logger)
	a.ExportService = export.NewService(a.Logger)

	a.Orchestrator = jobs.NewOrchestrator(
		a.Config,
		a.JobStorage,
		a.Rasterizer,
		a.Detector,
		a.SymbolReader,
		a.Extractor,
		a.Summarizer,
		a.ReportService,
		a.Logger,
	)
	a.Dispatcher = jobs.NewDispatcher(&a.Config.Workers, a.Orchestrator, a.Logger)

	sweeper, err := jobs.NewSweeper(&a.Config.Jobs, a.JobStorage, a.Logger)
	if err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}
	a.Sweeper = sweeper

	return nil
}

func (a *App) initHandlers() {
	a.BlueprintHandler = handlers.NewBlueprintHandler(a.Config, a.JobStorage, a.Dispatcher, a.ExportService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.Config, a.JobStorage, a.Logger)
}

// Close shuts down background workers and releases storage
func (a *App) Close() error {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
	}
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("LLM service close failed")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Database close failed")
			return err
		}
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
