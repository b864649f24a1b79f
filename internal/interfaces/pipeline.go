package interfaces

import (
	"context"
	"image"

	"github.com/ternarybob/takeoff/internal/models"
)

// PageImage is a rendered blueprint page on disk
type PageImage struct {
	// Number is the 1-based page number in the source document
	Number int

	// Path is the rendered image file location
	Path string
}

// Rasterizer converts an uploaded blueprint into page images.
// Page files sort lexically in page order. Returns an error only when
// no page at all could be produced.
type Rasterizer interface {
	RasterizePages(ctx context.Context, sourcePath, outDir string) ([]PageImage, error)
}

// SymbolDetector locates candidate fixture symbols on a single page
// image. An unreadable page yields an error and the page is skipped;
// detector errors never fail the whole job.
type SymbolDetector interface {
	DetectPage(ctx context.Context, page PageImage) ([]models.Detection, error)

	// Strategy names the active detection backend ("learned" or "heuristic")
	Strategy() string
}

// InferenceClient is the narrow boundary to a learned object-detection
// backend. Implementations run the model server-side; callers only see
// boxes and confidences.
type InferenceClient interface {
	Infer(ctx context.Context, imagePath string) ([]models.Detection, error)
}

// TextRecognizer is the narrow boundary to an OCR engine. Input is a
// prepared (cropped, binarized) image; output is raw recognized text.
type TextRecognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// SymbolReader resolves detection labels by reading text near each
// detection. Failures are isolated per detection: an unreadable crop
// leaves that detection's symbol nil.
type SymbolReader interface {
	ReadSymbols(ctx context.Context, page PageImage, detections []models.Detection) []models.Detection
}

// ScheduleExtractor pulls the fixture schedule table and general notes
// out of the source document. Missing or unparsable schedule content
// degrades to an empty rulebook, never an error that fails the job.
type ScheduleExtractor interface {
	Extract(ctx context.Context, sourcePath string) (*models.Rulebook, error)
}

// Summarizer groups raw detections into the final symbol->count summary
// using the extracted rulebook for descriptions. An empty detection set
// returns an empty summary without consulting any external service.
type Summarizer interface {
	Summarize(ctx context.Context, detections []models.Detection, rulebook *models.Rulebook) (models.Summary, error)
}
