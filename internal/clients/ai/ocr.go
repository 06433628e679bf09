package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/liquidinvestigations/hoover4/internal/platform/envutil"
)

// OCRItem is one recognized text region.
type OCRItem struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Box        [][]float64 `json:"box"`
}

type OCRResult struct {
	Items     []OCRItem `json:"items"`
	ElapsedMS int64     `json:"elapsed_ms"`
}

// OCRClient talks to the EasyOCR sidecar. The model runs on a single GPU, so
// its task queue is throttled separately from the common workers.
type OCRClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewOCRClient() *OCRClient {
	return &OCRClient{
		BaseURL: envutil.Str("OCR_URL", "http://hoover4-ai:8000/v1"),
		HTTP:    &http.Client{Timeout: 50 * time.Minute},
	}
}

// ReadImage posts the image bytes and returns the recognized regions plus
// the raw response body for the raw_ocr_results journal.
func (c *OCRClient) ReadImage(ctx context.Context, imagePath string) (*OCRResult, []byte, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ocr", bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("ocr response read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("ocr request: status %d: %.512s", resp.StatusCode, raw)
	}
	var parsed OCRResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, nil, fmt.Errorf("ocr response decode: %w", err)
	}
	return &parsed, raw, nil
}
