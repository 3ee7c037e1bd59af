package perception

import (
	"context"

	"deskpilot/internal/automation"
)

// OCRRegion is one recognized text region.
type OCRRegion struct {
	Text       string
	BBox       BBox
	Confidence float64
}

// OCREngine is the OCR collaborator contract. Any error means "no regions":
// the gate degrades to an empty list.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) ([]OCRRegion, error)
}

// Detection is one visual UI-element detection with its raw class label.
type Detection struct {
	Label      string
	BBox       BBox
	Confidence float64
}

// Detector is the vision detector contract. Same degradation rule as OCR.
type Detector interface {
	Detect(ctx context.Context, imagePath string) ([]Detection, error)
}

// Captioner describes a cropped region in a short phrase. Strictly
// best-effort; errors and empty captions are both fine.
type Captioner interface {
	Caption(ctx context.Context, imagePath string, region BBox) (string, error)
}

// ScreenshotFunc captures the current screen to a PNG and reports its path
// and dimensions. Unlike the other collaborators it may fail hard; the
// caller decides what that means for the run.
type ScreenshotFunc func(ctx context.Context) (automation.Shot, error)
