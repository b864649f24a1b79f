package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/takeoff/internal/interfaces"
)

// labelWhitelist restricts recognition to the characters fixture type
// marks are drawn from
const labelWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-"

// HTTPRecognizer sends prepared crops to an OCR server and returns the
// raw recognized text.
type HTTPRecognizer struct {
	endpoint string
	client   *http.Client
	logger   arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.TextRecognizer = (*HTTPRecognizer)(nil)

// NewHTTPRecognizer creates an OCR client for the given endpoint
func NewHTTPRecognizer(endpoint string, timeout time.Duration, logger arbor.ILogger) *HTTPRecognizer {
	return &HTTPRecognizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// ocrResponse is the wire format of the OCR server
type ocrResponse struct {
	Text string `json:"text"`
}

// Recognize posts a PNG-encoded crop and returns the recognized text
func (r *HTTPRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	var body bytes.Buffer
	if err := png.Encode(&body, img); err != nil {
		return "", fmt.Errorf("failed to encode crop: %w", err)
	}

	url := fmt.Sprintf("%s?whitelist=%s", r.endpoint, labelWhitelist)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("OCR server returned %d: %s", resp.StatusCode, string(payload))
	}

	var result ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode OCR response: %w", err)
	}

	return result.Text, nil
}
