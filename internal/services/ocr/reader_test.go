package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
)

// fakeRecognizer returns scripted responses in call order
type fakeRecognizer struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", nil
}

func writeTestPage(t *testing.T) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 300, 300))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	path := filepath.Join(t.TempDir(), "page_001.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "simple mark", text: "A1", want: "A1"},
		{name: "lowercase uppercased", text: "f2", want: "F2"},
		{name: "hyphenated mark", text: "F-2", want: "F-2"},
		{name: "mark inside noise", text: "| A1 .", want: "A1"},
		{name: "long word rejected", text: "fixture", want: ""},
		{name: "bare hyphens rejected", text: "---", want: ""},
		{name: "empty text", text: "", want: ""},
		{name: "whitespace only", text: "   \n", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSymbol(tt.text)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestReadSymbols(t *testing.T) {
	path := writeTestPage(t)
	recognizer := &fakeRecognizer{responses: []string{"A1", "unknown characters", "f2"}}

	reader := NewReader(&common.OCRConfig{CropMargin: 60}, recognizer, arbor.NewLogger())

	detections := []models.Detection{
		{Page: 1, Box: models.BoundingBox{X1: 50, Y1: 50, X2: 90, Y2: 80}},
		{Page: 1, Box: models.BoundingBox{X1: 120, Y1: 120, X2: 160, Y2: 150}},
		{Page: 1, Box: models.BoundingBox{X1: 200, Y1: 200, X2: 240, Y2: 230}},
	}

	labeled := reader.ReadSymbols(context.Background(), interfaces.PageImage{Number: 1, Path: path}, detections)
	require.Len(t, labeled, 3)

	require.NotNil(t, labeled[0].Symbol)
	assert.Equal(t, "A1", *labeled[0].Symbol)

	// Both words are too long to be type marks
	assert.Nil(t, labeled[1].Symbol)

	require.NotNil(t, labeled[2].Symbol)
	assert.Equal(t, "F2", *labeled[2].Symbol)
}

func TestReadSymbolsRecognizerFailureLeavesSymbolNil(t *testing.T) {
	path := writeTestPage(t)
	recognizer := &fakeRecognizer{
		responses: []string{"", "B2"},
		errs:      []error{fmt.Errorf("ocr backend unavailable"), nil},
	}

	reader := NewReader(&common.OCRConfig{CropMargin: 60}, recognizer, arbor.NewLogger())

	detections := []models.Detection{
		{Page: 1, Box: models.BoundingBox{X1: 50, Y1: 50, X2: 90, Y2: 80}},
		{Page: 1, Box: models.BoundingBox{X1: 120, Y1: 120, X2: 160, Y2: 150}},
	}

	labeled := reader.ReadSymbols(context.Background(), interfaces.PageImage{Number: 1, Path: path}, detections)
	require.Len(t, labeled, 2)

	assert.Nil(t, labeled[0].Symbol)
	require.NotNil(t, labeled[1].Symbol)
	assert.Equal(t, "B2", *labeled[1].Symbol)
}

func TestReadSymbolsWithoutRecognizer(t *testing.T) {
	reader := NewReader(&common.OCRConfig{CropMargin: 60}, nil, arbor.NewLogger())

	detections := []models.Detection{
		{Page: 1, Box: models.BoundingBox{X1: 50, Y1: 50, X2: 90, Y2: 80}},
	}

	labeled := reader.ReadSymbols(context.Background(), interfaces.PageImage{Number: 1, Path: "ignored.png"}, detections)
	require.Len(t, labeled, 1)
	assert.Nil(t, labeled[0].Symbol)
}
