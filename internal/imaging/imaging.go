// Package imaging holds the small raster operations shared by the
// symbol detector and the symbol reader: grayscale conversion, Otsu
// thresholding and binary morphology over ink masks.
package imaging

import (
	"image"
	"image/color"
)

// ToGray converts any image to 8-bit grayscale
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// OtsuThreshold computes the global binarization threshold that
// maximizes between-class variance of the gray histogram.
func OtsuThreshold(gray *image.Gray) uint8 {
	var hist [256]int
	bounds := gray.Bounds()
	total := bounds.Dx() * bounds.Dy()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
		}
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumB, wB float64
	var maxVariance float64
	var threshold uint8
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		variance := wB * wF * (mB - mF) * (mB - mF)
		if variance > maxVariance {
			maxVariance = variance
			threshold = uint8(t)
		}
	}
	return threshold
}

// InkMask binarizes a grayscale page into an ink mask: pixels at or
// below the threshold become foreground (255), paper becomes 0.
func InkMask(gray *image.Gray, threshold uint8) *image.Gray {
	bounds := gray.Bounds()
	mask := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray.GrayAt(x, y).Y <= threshold {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}

// Close applies morphological closing (dilate then erode) with a 3x3
// structuring element, repeated iterations times. Closing fuses the
// small gaps left by thin symbol strokes.
func Close(mask *image.Gray, iterations int) *image.Gray {
	out := mask
	for i := 0; i < iterations; i++ {
		out = dilate(out)
	}
	for i := 0; i < iterations; i++ {
		out = erode(out)
	}
	return out
}

func dilate(mask *image.Gray) *image.Gray {
	bounds := mask.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if anyNeighborSet(mask, x, y) {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

func erode(mask *image.Gray) *image.Gray {
	bounds := mask.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if allNeighborsSet(mask, x, y) {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

func anyNeighborSet(mask *image.Gray, x, y int) bool {
	bounds := mask.Bounds()
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < bounds.Min.X || ny < bounds.Min.Y || nx >= bounds.Max.X || ny >= bounds.Max.Y {
				continue
			}
			if mask.GrayAt(nx, ny).Y > 0 {
				return true
			}
		}
	}
	return false
}

func allNeighborsSet(mask *image.Gray, x, y int) bool {
	bounds := mask.Bounds()
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < bounds.Min.X || ny < bounds.Min.Y || nx >= bounds.Max.X || ny >= bounds.Max.Y {
				// Border pixels erode away
				return false
			}
			if mask.GrayAt(nx, ny).Y == 0 {
				return false
			}
		}
	}
	return true
}
