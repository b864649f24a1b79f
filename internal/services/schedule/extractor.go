package schedule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
)

// Service extracts the lighting fixture schedule and general notes from
// an uploaded blueprint using pdfcpu text extraction. Schedule content
// is optional: a document without a parsable schedule degrades to an
// empty rulebook rather than failing the job.
type Service struct {
	logger  arbor.ILogger
	tempDir string
}

// Compile-time interface assertion
var _ interfaces.ScheduleExtractor = (*Service)(nil)

// NewService creates a new schedule extractor service
func NewService(logger arbor.ILogger) *Service {
	tempDir := filepath.Join(os.TempDir(), "takeoff-schedule")
	os.MkdirAll(tempDir, 0755)

	return &Service{
		logger:  logger,
		tempDir: tempDir,
	}
}

// Extract pulls per-page text out of the source document and parses it
// into a rulebook. Non-PDF uploads carry no extractable schedule text.
func (s *Service) Extract(ctx context.Context, sourcePath string) (*models.Rulebook, error) {
	if strings.ToLower(filepath.Ext(sourcePath)) != ".pdf" {
		s.logger.Debug().Str("source", filepath.Base(sourcePath)).Msg("Non-PDF upload, no schedule text to extract")
		return &models.Rulebook{}, nil
	}

	pages, err := s.extractPageTexts(sourcePath)
	if err != nil {
		s.logger.Warn().Err(err).Str("source", filepath.Base(sourcePath)).Msg("Schedule text extraction failed, continuing with empty rulebook")
		return &models.Rulebook{}, nil
	}

	rulebook := ParseRulebook(pages)

	s.logger.Info().
		Int("schedule_rows", len(rulebook.Schedule)).
		Int("notes", len(rulebook.Notes)).
		Msg("Schedule extraction finished")

	return rulebook, nil
}

// extractPageTexts returns raw text per page number
func (s *Service) extractPageTexts(sourcePath string) (map[int]string, error) {
	pdfCtx, err := api.ReadContextFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(s.tempDir, fmt.Sprintf("pages_%d", os.Getpid()))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(sourcePath, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := make(map[int]string, pageCount)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		} else if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	return pageTexts, nil
}
