package ocr

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/imaging"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
)

// symbolToken matches a fixture type mark: a short run of uppercase
// letters, digits and hyphens, like "A1", "F-2" or "EM"
var symbolToken = regexp.MustCompile(`\b[A-Z0-9-]{1,4}\b`)

// Reader resolves detection labels by OCR over an expanded crop around
// each detection box. Failures are isolated per detection: a crop that
// cannot be read leaves that detection's symbol nil.
type Reader struct {
	config     *common.OCRConfig
	recognizer interfaces.TextRecognizer
	logger     arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.SymbolReader = (*Reader)(nil)

// NewReader creates a symbol reader backed by the given recognizer
func NewReader(config *common.OCRConfig, recognizer interfaces.TextRecognizer, logger arbor.ILogger) *Reader {
	return &Reader{
		config:     config,
		recognizer: recognizer,
		logger:     logger,
	}
}

// ReadSymbols annotates detections with recognized symbols. The page
// is decoded once; each detection reads from an expanded, binarized
// crop so nearby label text lands inside the OCR window.
func (r *Reader) ReadSymbols(ctx context.Context, page interfaces.PageImage, detections []models.Detection) []models.Detection {
	if len(detections) == 0 || r.recognizer == nil {
		return detections
	}

	img, err := loadImage(page.Path)
	if err != nil {
		r.logger.Error().Err(err).Int("page", page.Number).Msg("Failed to load page for symbol reading")
		return detections
	}

	gray := imaging.ToGray(img)
	threshold := imaging.OtsuThreshold(gray)

	for i := range detections {
		crop := r.cropAround(gray, detections[i].Box)
		if crop == nil {
			continue
		}

		binarized := imaging.InkMask(crop, threshold)
		text, err := r.recognizer.Recognize(ctx, binarized)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Int("page", page.Number).
				Msg("Symbol recognition failed for detection, leaving unlabeled")
			continue
		}

		detections[i].Symbol = ParseSymbol(text)
	}

	return detections
}

// cropAround extracts a crop with the configured margin of context
// around the detection box, clamped to the page bounds
func (r *Reader) cropAround(gray *image.Gray, box models.BoundingBox) *image.Gray {
	bounds := gray.Bounds()
	margin := r.config.CropMargin

	rect := image.Rect(
		int(box.X1)-margin,
		int(box.Y1)-margin,
		int(box.X2)+margin,
		int(box.Y2)+margin,
	).Intersect(bounds)

	if rect.Empty() {
		return nil
	}
	return gray.SubImage(rect).(*image.Gray)
}

// ParseSymbol extracts the first plausible type mark token from OCR
// text, or nil when none is present
func ParseSymbol(text string) *string {
	token := symbolToken.FindString(strings.ToUpper(text))
	if token == "" {
		return nil
	}
	// A bare hyphen run is OCR noise, not a type mark
	if strings.Trim(token, "-") == "" {
		return nil
	}
	return &token
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
