package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"deskpilot/internal/logging"
)

// HTTPConfig configures an HTTP-backed perception collaborator.
type HTTPConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPOCR talks to an OCR service: POST the PNG to {base}/ocr, receive
// regions as JSON. Any transport or decode failure degrades to an error the
// gate turns into an empty region list.
type HTTPOCR struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPOCR creates the client; a zero timeout defaults to 30s.
func NewHTTPOCR(cfg HTTPConfig) *HTTPOCR {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPOCR{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type wireRegion struct {
	Text       string  `json:"text"`
	BBox       [4]int  `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

func (o *HTTPOCR) Recognize(ctx context.Context, imagePath string) ([]OCRRegion, error) {
	var wire []wireRegion
	if err := postImage(ctx, o.client, o.cfg.BaseURL+"/ocr", imagePath, &wire); err != nil {
		return nil, err
	}
	regions := make([]OCRRegion, 0, len(wire))
	for _, w := range wire {
		regions = append(regions, OCRRegion{
			Text:       w.Text,
			BBox:       BBox{X1: w.BBox[0], Y1: w.BBox[1], X2: w.BBox[2], Y2: w.BBox[3]},
			Confidence: w.Confidence,
		})
	}
	logging.Get(logging.CategoryPerception).Debug("ocr returned %d regions", len(regions))
	return regions, nil
}

func postImage(ctx context.Context, client *http.Client, url, imagePath string, out any) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", url, err)
	}
	return nil
}
