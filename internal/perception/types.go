// Package perception builds the per-run snapshot of the screen that target
// resolution works against. It owns the UIElement/UIDescription data model,
// the run-level perception gate, and the OCR/detector/captioner collaborator
// contracts.
package perception

import "time"

// =============================================================================
// UI ELEMENT MODEL
// =============================================================================

// Source tags where an element came from.
type Source string

const (
	SourceOCR      Source = "ocr"
	SourceDetector Source = "detector"
	SourceCaption  Source = "caption"
	SourceFallback Source = "fallback"
)

// Kind is the closed UI element taxonomy.
type Kind string

const (
	KindButton     Kind = "button"
	KindInputField Kind = "input_field"
	KindMenuItem   Kind = "menu_item"
	KindCheckbox   Kind = "checkbox"
	KindLink       Kind = "link"
	KindIcon       Kind = "icon"
	KindTab        Kind = "tab"
	KindText       Kind = "text"
	KindUnknown    Kind = "unknown"
)

// BBox is an axis-aligned box in screen pixels.
type BBox struct {
	X1, Y1, X2, Y2 int
}

// Valid reports whether the box is well-formed and inside the screen.
func (b BBox) Valid(width, height int) bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2 &&
		b.X1 >= 0 && b.Y1 >= 0 && b.X2 <= width && b.Y2 <= height
}

// Center returns the midpoint of the box.
func (b BBox) Center() (int, int) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Area returns the box area in square pixels.
func (b BBox) Area() int {
	w, h := b.X2-b.X1, b.Y2-b.Y1
	if w < 0 || h < 0 {
		return 0
	}
	return w * h
}

// UIElement is one candidate on screen. Text is OCR-sourced (or empty);
// Description is caption-sourced; the two channels never overwrite each
// other. Elements are immutable once their UIDescription is published.
type UIElement struct {
	BBox        BBox
	Text        string
	Description string
	Kind        Kind
	Confidence  float64
	Source      Source
}

// UIDescription is the aggregated per-run snapshot of screen elements.
// The zero-element form with Skipped set records that perception was
// intentionally not performed.
type UIDescription struct {
	Width      int
	Height     int
	Elements   []UIElement
	CapturedAt time.Time

	// ScreenshotPath is the saved frame the elements were derived from.
	// Empty when perception was skipped.
	ScreenshotPath string

	// Skipped records that the run had no visually grounded steps.
	Skipped bool
}

// Empty reports whether the description carries no elements.
func (d *UIDescription) Empty() bool {
	return d == nil || len(d.Elements) == 0
}
