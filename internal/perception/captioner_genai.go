package perception

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"deskpilot/internal/logging"
)

// GenAICaptioner describes a cropped UI element in a short phrase using a
// Gemini vision model. It is strictly best-effort: every failure path
// returns an error the gate logs and ignores.
type GenAICaptioner struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGenAICaptioner creates the captioner.
func NewGenAICaptioner(apiKey, model string, timeout time.Duration) (*GenAICaptioner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	return &GenAICaptioner{client: client, model: model, timeout: timeout}, nil
}

const captionPrompt = `Describe this UI element in at most five words,
naming what a user would call it (e.g. "blue settings gear icon").`

func (c *GenAICaptioner) Caption(ctx context.Context, imagePath string, region BBox) (string, error) {
	crop, err := cropPNG(imagePath, region)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(captionPrompt),
			genai.NewPartFromBytes(crop, "image/png"),
		}, genai.RoleUser),
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("caption generation failed: %w", err)
	}
	caption := strings.TrimSpace(result.Text())
	logging.Get(logging.CategoryAPI).Debug("captioned region: %q", caption)
	return caption, nil
}

// cropPNG extracts the region from the screenshot as PNG bytes.
func cropPNG(imagePath string, region BBox) ([]byte, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("opening screenshot: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot: %w", err)
	}
	rect := image.Rect(region.X1, region.Y1, region.X2, region.Y2)
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region %v outside image bounds", region)
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	si, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("screenshot image does not support cropping")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, si.SubImage(rect)); err != nil {
		return nil, fmt.Errorf("encoding crop: %w", err)
	}
	return buf.Bytes(), nil
}
