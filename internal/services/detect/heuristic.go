package detect

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/takeoff/internal/imaging"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
)

// Geometric filters for candidate symbol regions. Lighting fixture
// symbols on a 300 DPI plan are compact, mostly-filled shapes; these
// bounds reject text runs, hatching and border lines.
const (
	minComponentArea = 200.0
	minFillRatio     = 0.6
	maxFillRatio     = 1.2
	minAspectRatio   = 0.8
	maxAspectRatio   = 5.0
	minBoxArea       = 200.0
	maxBoxArea       = 50000.0

	closeIterations = 2
)

// HeuristicDetector finds candidate fixture symbols with classical
// image processing: binarize, close, then filter connected components
// by size, fill and aspect. It needs no model artifact and serves as
// the per-page fallback for the learned detector.
type HeuristicDetector struct {
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.SymbolDetector = (*HeuristicDetector)(nil)

// NewHeuristicDetector creates a heuristic contour detector
func NewHeuristicDetector(logger arbor.ILogger) *HeuristicDetector {
	return &HeuristicDetector{logger: logger}
}

// Strategy names the detection backend
func (d *HeuristicDetector) Strategy() string {
	return "heuristic"
}

// DetectPage loads a page image and returns candidate symbol detections
func (d *HeuristicDetector) DetectPage(ctx context.Context, page interfaces.PageImage) ([]models.Detection, error) {
	f, err := os.Open(page.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page image: %w", err)
	}

	detections := d.DetectImage(img, page.Number, page.Path)

	d.logger.Debug().
		Int("page", page.Number).
		Int("detections", len(detections)).
		Msg("Heuristic detection finished")

	return detections, nil
}

// DetectImage runs the contour heuristic over an in-memory image.
// Confidence scales with how filled the candidate region is, capped at
// 0.95: min(0.6 + 0.4*fill, 0.95).
func (d *HeuristicDetector) DetectImage(img image.Image, pageNumber int, pagePath string) []models.Detection {
	gray := imaging.ToGray(img)
	threshold := imaging.OtsuThreshold(gray)
	mask := imaging.Close(imaging.InkMask(gray, threshold), closeIterations)

	var detections []models.Detection
	for _, comp := range findComponents(mask) {
		boxW := float64(comp.maxX - comp.minX + 1)
		boxH := float64(comp.maxY - comp.minY + 1)
		boxArea := boxW * boxH
		area := float64(comp.pixels)
		fill := area / boxArea
		aspect := boxW / boxH

		if area < minComponentArea {
			continue
		}
		if fill <= minFillRatio || fill >= maxFillRatio {
			continue
		}
		if aspect <= minAspectRatio || aspect >= maxAspectRatio {
			continue
		}
		if boxArea <= minBoxArea || boxArea >= maxBoxArea {
			continue
		}

		detections = append(detections, models.Detection{
			Page:     pageNumber,
			PageFile: pagePath,
			Box: models.BoundingBox{
				X1: float64(comp.minX),
				Y1: float64(comp.minY),
				X2: float64(comp.maxX + 1),
				Y2: float64(comp.maxY + 1),
			},
			Confidence: math.Min(0.6+0.4*fill, 0.95),
		})
	}

	return detections
}

// component is a connected foreground region of the ink mask
type component struct {
	pixels                 int
	minX, minY, maxX, maxY int
}

// findComponents extracts 8-connected foreground components
func findComponents(mask *image.Gray) []component {
	bounds := mask.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	visited := make([]bool, w*h)

	var components []component
	var stack []image.Point

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] || mask.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y == 0 {
				continue
			}

			comp := component{minX: x, minY: y, maxX: x, maxY: y}
			stack = append(stack[:0], image.Point{X: x, Y: y})
			visited[y*w+x] = true

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				comp.pixels++
				if p.X < comp.minX {
					comp.minX = p.X
				}
				if p.X > comp.maxX {
					comp.maxX = p.X
				}
				if p.Y < comp.minY {
					comp.minY = p.Y
				}
				if p.Y > comp.maxY {
					comp.maxY = p.Y
				}

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h || visited[ny*w+nx] {
							continue
						}
						if mask.GrayAt(bounds.Min.X+nx, bounds.Min.Y+ny).Y > 0 {
							visited[ny*w+nx] = true
							stack = append(stack, image.Point{X: nx, Y: ny})
						}
					}
				}
			}

			components = append(components, comp)
		}
	}

	return components
}
