package detect

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
)

var (
	boxColor   = color.RGBA{R: 0, G: 170, B: 0, A: 255}
	labelColor = color.RGBA{R: 200, G: 0, B: 0, A: 255}
)

// AnnotatePage writes a copy of the page image with detection boxes and
// labels drawn in, for operator review. Annotation is a side artifact:
// callers log failures and move on.
func AnnotatePage(page interfaces.PageImage, detections []models.Detection, outPath string) error {
	f, err := os.Open(page.Path)
	if err != nil {
		return fmt.Errorf("failed to open page image: %w", err)
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode page image: %w", err)
	}

	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, det := range detections {
		rect := image.Rect(int(det.Box.X1), int(det.Box.Y1), int(det.Box.X2), int(det.Box.Y2))
		drawRect(canvas, rect, boxColor, 3)

		label := fmt.Sprintf("? %.2f", det.Confidence)
		if det.Symbol != nil {
			label = fmt.Sprintf("%s %.2f", *det.Symbol, det.Confidence)
		}
		drawLabel(canvas, rect.Min.X, rect.Min.Y-4, label)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create annotated image: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, canvas); err != nil {
		return fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return nil
}

// drawRect draws a rectangle outline with the given stroke width
func drawRect(img *image.RGBA, rect image.Rectangle, c color.Color, stroke int) {
	rect = rect.Intersect(img.Bounds())
	for s := 0; s < stroke; s++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			setPixel(img, x, rect.Min.Y+s, c)
			setPixel(img, x, rect.Max.Y-1-s, c)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			setPixel(img, rect.Min.X+s, y, c)
			setPixel(img, rect.Max.X-1-s, y, c)
		}
	}
}

func setPixel(img *image.RGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

// drawLabel renders small text above a detection box
func drawLabel(img *image.RGBA, x, y int, text string) {
	if y < basicfont.Face7x13.Height {
		y = basicfont.Face7x13.Height
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
