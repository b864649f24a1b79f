package rasterize

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/interfaces"
)

// Service renders uploaded blueprints into per-page PNG images.
// PDFs are rasterized page by page; plain raster uploads pass through
// as a single page.
type Service struct {
	config *common.RasterConfig
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.Rasterizer = (*Service)(nil)

// NewService creates a new rasterizer service
func NewService(config *common.RasterConfig, logger arbor.ILogger) *Service {
	return &Service{
		config: config,
		logger: logger,
	}
}

// RasterizePages converts the source document into page images under
// outDir, named page_001.png, page_002.png, ... so lexical order matches
// page order. A page that fails to render is logged and skipped; the
// error return is reserved for documents that yield no pages at all.
func (s *Service) RasterizePages(ctx context.Context, sourcePath, outDir string) ([]interfaces.PageImage, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create output directory: %v", common.ErrConversionFailed, err)
	}

	ext := strings.ToLower(filepath.Ext(sourcePath))
	switch ext {
	case ".pdf":
		return s.rasterizePDF(ctx, sourcePath, outDir)
	case ".png", ".jpg", ".jpeg":
		return s.copyImage(sourcePath, outDir)
	default:
		return nil, fmt.Errorf("%w: unsupported source type %q", common.ErrConversionFailed, ext)
	}
}

func (s *Service) rasterizePDF(ctx context.Context, sourcePath, outDir string) ([]interfaces.PageImage, error) {
	doc, err := fitz.New(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %v", common.ErrConversionFailed, err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	s.logger.Info().
		Str("source", filepath.Base(sourcePath)).
		Int("pages", pageCount).
		Int("dpi", s.config.DPI).
		Msg("Rasterizing PDF pages")

	pages := make([]interfaces.PageImage, 0, pageCount)
	for n := 0; n < pageCount; n++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(n, float64(s.config.DPI))
		if err != nil {
			s.logger.Error().Err(err).Int("page", n+1).Msg("Failed to render page, skipping")
			continue
		}

		pagePath := filepath.Join(outDir, fmt.Sprintf("page_%03d.png", n+1))
		if err := writePNG(pagePath, img); err != nil {
			s.logger.Error().Err(err).Int("page", n+1).Msg("Failed to write page image, skipping")
			continue
		}

		pages = append(pages, interfaces.PageImage{Number: n + 1, Path: pagePath})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no pages could be rendered from %s", common.ErrConversionFailed, filepath.Base(sourcePath))
	}

	return pages, nil
}

// copyImage treats a raster upload as a single-page document
func (s *Service) copyImage(sourcePath, outDir string) ([]interfaces.PageImage, error) {
	pagePath := filepath.Join(outDir, "page_001"+strings.ToLower(filepath.Ext(sourcePath)))

	src, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open image: %v", common.ErrConversionFailed, err)
	}
	defer src.Close()

	dst, err := os.Create(pagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create page image: %v", common.ErrConversionFailed, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return nil, fmt.Errorf("%w: failed to copy image: %v", common.ErrConversionFailed, err)
	}

	s.logger.Info().Str("source", filepath.Base(sourcePath)).Msg("Raster upload used as single page")

	return []interfaces.PageImage{{Number: 1, Path: pagePath}}, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return err
	}
	return f.Sync()
}
