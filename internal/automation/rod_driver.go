package automation

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodConfig configures the Chromium-backed driver.
type RodConfig struct {
	Headless       bool   `yaml:"headless"`
	StartURL       string `yaml:"start_url"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
}

// DefaultRodConfig returns sensible defaults for a desktop-sized surface.
func DefaultRodConfig() RodConfig {
	return RodConfig{
		Headless:       false,
		StartURL:       "about:blank",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
	}
}

// RodDriver drives a Chromium page as the automation surface. The mouse and
// keyboard primitives map one-to-one onto CDP input events, so the pipeline
// exercises the same sequencing it would against a real desktop.
type RodDriver struct {
	cfg     RodConfig
	browser *rod.Browser
	page    *rod.Page
}

// NewRodDriver launches (or connects to) Chromium and opens the surface
// page at the configured viewport.
func NewRodDriver(cfg RodConfig) (*RodDriver, error) {
	if cfg.ViewportWidth == 0 {
		cfg.ViewportWidth = 1920
	}
	if cfg.ViewportHeight == 0 {
		cfg.ViewportHeight = 1080
	}
	if cfg.StartURL == "" {
		cfg.StartURL = "about:blank"
	}

	url, err := launcher.New().Headless(cfg.Headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: cfg.StartURL})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("opening surface page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		browser.Close()
		return nil, fmt.Errorf("setting viewport: %w", err)
	}
	return &RodDriver{cfg: cfg, browser: browser, page: page}, nil
}

// Close tears down the browser.
func (d *RodDriver) Close() error {
	return d.browser.Close()
}

func (d *RodDriver) MoveTo(ctx context.Context, x, y int) error {
	return d.page.Context(ctx).Mouse.MoveTo(proto.Point{X: float64(x), Y: float64(y)})
}

func (d *RodDriver) Click(ctx context.Context) error {
	return d.page.Context(ctx).Mouse.Click(proto.InputMouseButtonLeft, 1)
}

func (d *RodDriver) DoubleClick(ctx context.Context) error {
	return d.page.Context(ctx).Mouse.Click(proto.InputMouseButtonLeft, 2)
}

func (d *RodDriver) RightClick(ctx context.Context) error {
	return d.page.Context(ctx).Mouse.Click(proto.InputMouseButtonRight, 1)
}

func (d *RodDriver) TypeText(ctx context.Context, text string) error {
	return d.page.Context(ctx).InsertText(text)
}

// rodKeys maps canonical key identifiers onto CDP keys.
var rodKeys = map[string]input.Key{
	"enter":       input.Enter,
	"escape":      input.Escape,
	"tab":         input.Tab,
	"space":       input.Space,
	"backspace":   input.Backspace,
	"delete":      input.Delete,
	"up":          input.ArrowUp,
	"down":        input.ArrowDown,
	"left":        input.ArrowLeft,
	"right":       input.ArrowRight,
	"home":        input.Home,
	"end":         input.End,
	"pageup":      input.PageUp,
	"pagedown":    input.PageDown,
	"ctrl":        input.ControlLeft,
	"alt":         input.AltLeft,
	"shift":       input.ShiftLeft,
	"win":         input.MetaLeft,
	"capslock":    input.CapsLock,
	"insert":      input.Insert,
	"printscreen": input.PrintScreen,
}

func (d *RodDriver) PressKey(ctx context.Context, key string) error {
	if k, ok := rodKeys[key]; ok {
		return d.page.Context(ctx).Keyboard.Press(k)
	}
	// Single characters and f-keys type through as text; CanonicalKey
	// guarantees nothing else reaches here.
	return d.page.Context(ctx).InsertText(key)
}

func (d *RodDriver) Scroll(ctx context.Context, amount int) error {
	return d.page.Context(ctx).Mouse.Scroll(0, float64(amount)*120, 1)
}

func (d *RodDriver) Screenshot(ctx context.Context, region *Rect, path string) (Shot, error) {
	req := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
	if region != nil {
		req.Clip = &proto.PageViewport{
			X:      float64(region.X),
			Y:      float64(region.Y),
			Width:  float64(region.Width),
			Height: float64(region.Height),
			Scale:  1,
		}
	}
	data, err := d.page.Context(ctx).Screenshot(false, req)
	if err != nil {
		return Shot{}, fmt.Errorf("capturing screenshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Shot{}, fmt.Errorf("saving screenshot: %w", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Shot{}, fmt.Errorf("decoding screenshot: %w", err)
	}
	return Shot{Path: path, Width: cfg.Width, Height: cfg.Height}, nil
}

func (d *RodDriver) Frame(ctx context.Context) (image.Image, error) {
	data, err := d.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return nil, fmt.Errorf("capturing frame: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	return img, nil
}
