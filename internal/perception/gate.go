package perception

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"deskpilot/internal/automation"
	"deskpilot/internal/command"
	"deskpilot/internal/logging"
)

// GateConfig carries the run-level perception options.
type GateConfig struct {
	// OCRMinConfidence drops OCR regions below this confidence.
	OCRMinConfidence float64 `yaml:"ocr_min_confidence"`

	// CaptionEnabled allows best-effort captioning of textless elements,
	// and only when OCR did not already cover every target fragment.
	CaptionEnabled bool `yaml:"caption_enabled"`
}

// DefaultGateConfig returns the documented defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{OCRMinConfidence: 0.4, CaptionEnabled: false}
}

// Gate decides per run whether perception happens at all and, when it does,
// builds the single UIDescription every visual step shares.
type Gate struct {
	OCR        OCREngine
	Detector   Detector
	Captioner  Captioner // optional
	Screenshot ScreenshotFunc
	Config     GateConfig
}

// Describe runs the gate. When no step needs visual grounding it returns
// the empty description without touching the screen: zero screenshot, OCR
// or detector calls. Otherwise it captures exactly one screenshot and
// aggregates OCR and detector output (in parallel; both complete before the
// description is published).
func (g *Gate) Describe(ctx context.Context, steps []command.Step) (*UIDescription, error) {
	log := logging.Get(logging.CategoryPerception)

	visual := make([]command.Step, 0, len(steps))
	for _, s := range steps {
		if s.NeedsVisualGrounding {
			visual = append(visual, s)
		}
	}
	if len(visual) == 0 {
		log.Debug("no visual steps; perception skipped")
		return &UIDescription{Skipped: true, CapturedAt: time.Now()}, nil
	}

	shot, err := g.Screenshot(ctx)
	if err != nil {
		log.Error("screenshot failed: %v", err)
		return &UIDescription{CapturedAt: time.Now()}, err
	}

	desc := g.describeShot(ctx, shot)

	if g.Config.CaptionEnabled && g.Captioner != nil && !coversAllTargets(desc.Elements, visual) {
		g.caption(ctx, shot.Path, desc)
	}

	log.Info("ui description built: %d elements", len(desc.Elements))
	return desc, nil
}

// Snapshot describes an already captured frame without captioning. The
// orchestrator uses it for the post-run screen-change summary.
func (g *Gate) Snapshot(ctx context.Context, shot automation.Shot) *UIDescription {
	return g.describeShot(ctx, shot)
}

// describeShot runs OCR and detector over one frame (in parallel; both
// complete before the description is published) and merges the results.
func (g *Gate) describeShot(ctx context.Context, shot automation.Shot) *UIDescription {
	log := logging.Get(logging.CategoryPerception)

	var (
		regions    []OCRRegion
		detections []Detection
	)
	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		rs, err := g.OCR.Recognize(ectx, shot.Path)
		if err != nil {
			log.Warn("OCR degraded to empty: %v", err)
			return nil
		}
		regions = rs
		return nil
	})
	eg.Go(func() error {
		ds, err := g.Detector.Detect(ectx, shot.Path)
		if err != nil {
			log.Warn("detector degraded to empty: %v", err)
			return nil
		}
		detections = ds
		return nil
	})
	_ = eg.Wait() // both legs swallow their own errors

	desc := &UIDescription{
		Width:          shot.Width,
		Height:         shot.Height,
		CapturedAt:     time.Now(),
		ScreenshotPath: shot.Path,
	}
	desc.Elements = g.merge(regions, detections, shot.Width, shot.Height)
	return desc
}

// detectorKinds maps detector class labels onto the kind enum; unlisted
// labels pass through as their own kind.
var detectorKinds = map[string]Kind{
	"button":     KindButton,
	"btn":        KindButton,
	"input":      KindInputField,
	"textbox":    KindInputField,
	"text_field": KindInputField,
	"menu":       KindMenuItem,
	"dropdown":   KindMenuItem,
	"checkbox":   KindCheckbox,
	"icon":       KindIcon,
	"link":       KindLink,
	"tab":        KindTab,
}

func kindFromLabel(label string) Kind {
	l := strings.ToLower(strings.TrimSpace(label))
	if k, ok := detectorKinds[l]; ok {
		return k
	}
	if l == "" {
		return KindUnknown
	}
	return Kind(l)
}

// merge builds the element list: detector elements first, each adopting the
// text of the best OCR region centered inside it, then the OCR regions
// whose normalized text is not already carried by a detector element.
func (g *Gate) merge(regions []OCRRegion, detections []Detection, w, h int) []UIElement {
	kept := make([]OCRRegion, 0, len(regions))
	for _, r := range regions {
		if r.Confidence >= g.Config.OCRMinConfidence && strings.TrimSpace(r.Text) != "" {
			kept = append(kept, r)
		}
	}

	elems := make([]UIElement, 0, len(detections)+len(kept))
	claimed := make([]bool, len(kept))
	for _, d := range detections {
		el := UIElement{
			BBox:       d.BBox,
			Kind:       kindFromLabel(d.Label),
			Confidence: d.Confidence,
			Source:     SourceDetector,
		}
		bestIdx, bestConf := -1, 0.0
		for i, r := range kept {
			cx, cy := r.BBox.Center()
			if cx >= d.BBox.X1 && cx < d.BBox.X2 && cy >= d.BBox.Y1 && cy < d.BBox.Y2 {
				if r.Confidence > bestConf {
					bestIdx, bestConf = i, r.Confidence
				}
			}
		}
		if bestIdx >= 0 {
			el.Text = kept[bestIdx].Text
			claimed[bestIdx] = true
		}
		elems = append(elems, el)
	}

	seen := make(map[string]bool, len(elems))
	for _, el := range elems {
		if t := normalizeText(el.Text); t != "" {
			seen[t] = true
		}
	}
	for i, r := range kept {
		if claimed[i] {
			continue
		}
		if seen[normalizeText(r.Text)] {
			continue
		}
		elems = append(elems, UIElement{
			BBox:       r.BBox,
			Text:       r.Text,
			Kind:       KindText,
			Confidence: r.Confidence,
			Source:     SourceOCR,
		})
	}
	return elems
}

// caption fills Description (never Text) on elements that carry no text.
func (g *Gate) caption(ctx context.Context, imagePath string, desc *UIDescription) {
	log := logging.Get(logging.CategoryPerception)
	for i := range desc.Elements {
		el := &desc.Elements[i]
		if el.Text != "" || el.Description != "" {
			continue
		}
		if !el.BBox.Valid(desc.Width, desc.Height) {
			continue
		}
		text, err := g.Captioner.Caption(ctx, imagePath, el.BBox)
		if err != nil {
			log.Debug("caption skipped: %v", err)
			continue
		}
		el.Description = strings.TrimSpace(text)
		if el.Description != "" {
			el.Source = SourceCaption
		}
	}
}

// coversAllTargets reports whether every visual step's fragment already
// appears in some element text; captioning is pointless then.
func coversAllTargets(elems []UIElement, visual []command.Step) bool {
	for _, s := range visual {
		frag := normalizeText(s.TargetFragment)
		if frag == "" {
			continue
		}
		found := false
		for _, el := range elems {
			if t := normalizeText(el.Text); t != "" && strings.Contains(t, frag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
