package perception

import (
	"context"
	"net/http"
	"time"

	"deskpilot/internal/logging"
)

// HTTPDetector talks to a UI-element detection service: POST the PNG to
// {base}/detect, receive labeled boxes as JSON.
type HTTPDetector struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPDetector creates the client; a zero timeout defaults to 30s.
func NewHTTPDetector(cfg HTTPConfig) *HTTPDetector {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPDetector{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type wireDetection struct {
	Label      string  `json:"label"`
	BBox       [4]int  `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

func (d *HTTPDetector) Detect(ctx context.Context, imagePath string) ([]Detection, error) {
	var wire []wireDetection
	if err := postImage(ctx, d.client, d.cfg.BaseURL+"/detect", imagePath, &wire); err != nil {
		return nil, err
	}
	detections := make([]Detection, 0, len(wire))
	for _, w := range wire {
		detections = append(detections, Detection{
			Label:      w.Label,
			BBox:       BBox{X1: w.BBox[0], Y1: w.BBox[1], X2: w.BBox[2], Y2: w.BBox[3]},
			Confidence: w.Confidence,
		})
	}
	logging.Get(logging.CategoryPerception).Debug("detector returned %d detections", len(detections))
	return detections, nil
}
