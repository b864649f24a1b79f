package rasterize

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/takeoff/internal/common"
)

func newTestService() *Service {
	return NewService(&common.RasterConfig{DPI: 300}, arbor.NewLogger())
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 40, 40))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestRasterizePagesImageUpload(t *testing.T) {
	service := newTestService()

	sourcePath := filepath.Join(t.TempDir(), "floorplan.png")
	writeTestPNG(t, sourcePath)

	outDir := filepath.Join(t.TempDir(), "pages")
	pages, err := service.RasterizePages(context.Background(), sourcePath, outDir)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, filepath.Join(outDir, "page_001.png"), pages[0].Path)
	assert.FileExists(t, pages[0].Path)
}

func TestRasterizePagesUnsupportedExtension(t *testing.T) {
	service := newTestService()

	sourcePath := filepath.Join(t.TempDir(), "plan.docx")
	require.NoError(t, os.WriteFile(sourcePath, []byte("not a drawing"), 0o644))

	_, err := service.RasterizePages(context.Background(), sourcePath, t.TempDir())
	assert.ErrorIs(t, err, common.ErrConversionFailed)
}

func TestRasterizePagesMissingSource(t *testing.T) {
	service := newTestService()

	_, err := service.RasterizePages(context.Background(), "/nonexistent/plan.png", t.TempDir())
	assert.Error(t, err)
}

func TestRasterizePagesCorruptPDF(t *testing.T) {
	service := newTestService()

	sourcePath := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(sourcePath, []byte("not really a pdf"), 0o644))

	_, err := service.RasterizePages(context.Background(), sourcePath, t.TempDir())
	assert.Error(t, err)
}
