package models

// BoundingBox is an axis-aligned box in page pixel coordinates
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the horizontal extent of the box
func (b BoundingBox) Width() float64 {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box
func (b BoundingBox) Height() float64 {
	return b.Y2 - b.Y1
}

// Area returns the box area in square pixels
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// Detection is a candidate fixture symbol found on a page image.
// Symbol is nil until the reader resolves a label, and stays nil when
// no plausible label can be read.
type Detection struct {
	Page       int         `json:"page"`
	PageFile   string      `json:"page_file"`
	Box        BoundingBox `json:"box"`
	Confidence float64     `json:"confidence"`
	Symbol     *string     `json:"symbol"`
}
