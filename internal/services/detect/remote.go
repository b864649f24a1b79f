package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
)

// HTTPInferenceClient talks to a learned object-detection server over
// HTTP. The page image is posted as multipart form data; the server
// answers with boxes and confidences in page pixel coordinates.
type HTTPInferenceClient struct {
	endpoint      string
	minConfidence float64
	client        *http.Client
	logger        arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.InferenceClient = (*HTTPInferenceClient)(nil)

// NewHTTPInferenceClient creates an inference client for the given
// detection endpoint
func NewHTTPInferenceClient(endpoint string, minConfidence float64, timeout time.Duration, logger arbor.ILogger) *HTTPInferenceClient {
	return &HTTPInferenceClient{
		endpoint:      endpoint,
		minConfidence: minConfidence,
		client:        &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// inferenceResponse is the wire format of the detection server
type inferenceResponse struct {
	Detections []struct {
		X1         float64 `json:"x1"`
		Y1         float64 `json:"y1"`
		X2         float64 `json:"x2"`
		Y2         float64 `json:"y2"`
		Confidence float64 `json:"confidence"`
	} `json:"detections"`
}

// Infer posts the page image and returns detections above the
// configured confidence floor
func (c *HTTPInferenceClient) Infer(ctx context.Context, imagePath string) ([]models.Detection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open page image: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read page image: %w", err)
	}
	f.Close()

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference server returned %d: %s", resp.StatusCode, string(payload))
	}

	var result inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}

	detections := make([]models.Detection, 0, len(result.Detections))
	for _, d := range result.Detections {
		if d.Confidence < c.minConfidence {
			continue
		}
		detections = append(detections, models.Detection{
			Box:        models.BoundingBox{X1: d.X1, Y1: d.Y1, X2: d.X2, Y2: d.Y2},
			Confidence: d.Confidence,
		})
	}

	return detections, nil
}
