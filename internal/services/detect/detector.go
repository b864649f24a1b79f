package detect

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
)

// Service is the symbol detector used by the pipeline. The detection
// strategy is chosen once at construction: the learned backend when an
// inference endpoint is configured, the contour heuristic otherwise.
// With the learned backend active, a page-level inference failure falls
// back to the heuristic for that page only.
type Service struct {
	config    *common.DetectorConfig
	logger    arbor.ILogger
	client    interfaces.InferenceClient
	heuristic *HeuristicDetector
	strategy  string
}

// Compile-time interface assertion
var _ interfaces.SymbolDetector = (*Service)(nil)

// NewService creates the detector service. client may be nil when no
// inference endpoint is configured; the heuristic then carries all pages.
func NewService(config *common.DetectorConfig, client interfaces.InferenceClient, logger arbor.ILogger) *Service {
	strategy := "heuristic"
	if config.Endpoint != "" && client != nil {
		strategy = "learned"
	}

	logger.Info().Str("strategy", strategy).Msg("Symbol detector initialized")

	return &Service{
		config:    config,
		logger:    logger,
		client:    client,
		heuristic: NewHeuristicDetector(logger),
		strategy:  strategy,
	}
}

// Strategy names the active detection backend
func (s *Service) Strategy() string {
	return s.strategy
}

// VerifyModel checks that the learned detector's weight artifact exists
// and is plausibly usable. A missing or truncated artifact fails the
// whole document rather than silently producing an empty takeoff.
// Heuristic-only deployments carry no model requirement.
func (s *Service) VerifyModel() error {
	if s.strategy != "learned" {
		return nil
	}

	info, err := os.Stat(s.config.ModelPath)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrModelUnavailable, s.config.ModelPath)
	}
	if info.Size() < s.config.MinModelBytes {
		return fmt.Errorf("%w: %s is %d bytes, expected at least %d", common.ErrModelUnavailable, s.config.ModelPath, info.Size(), s.config.MinModelBytes)
	}
	return nil
}

// DetectPage finds candidate symbols on one page. With the learned
// backend, an inference failure degrades to the heuristic for this page;
// the job itself never fails here.
func (s *Service) DetectPage(ctx context.Context, page interfaces.PageImage) ([]models.Detection, error) {
	if s.strategy == "learned" {
		timeout, err := time.ParseDuration(s.config.Timeout)
		if err != nil {
			timeout = 60 * time.Second
		}
		inferCtx, cancel := context.WithTimeout(ctx, timeout)
		detections, err := s.client.Infer(inferCtx, page.Path)
		cancel()

		if err == nil {
			for i := range detections {
				detections[i].Page = page.Number
				detections[i].PageFile = page.Path
			}
			s.logger.Debug().
				Int("page", page.Number).
				Int("detections", len(detections)).
				Msg("Learned detection finished")
			return detections, nil
		}

		s.logger.Warn().
			Err(err).
			Int("page", page.Number).
			Msg("Learned detection failed, falling back to heuristic for this page")
	}

	return s.heuristic.DetectPage(ctx, page)
}
