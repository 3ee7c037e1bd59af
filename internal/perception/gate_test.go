package perception

import (
	"context"
	"errors"
	"testing"

	"deskpilot/internal/automation"
	"deskpilot/internal/command"
)

type fakeOCR struct {
	calls   int
	regions []OCRRegion
	err     error
}

func (f *fakeOCR) Recognize(ctx context.Context, imagePath string) ([]OCRRegion, error) {
	f.calls++
	return f.regions, f.err
}

type fakeDetector struct {
	calls      int
	detections []Detection
	err        error
}

func (f *fakeDetector) Detect(ctx context.Context, imagePath string) ([]Detection, error) {
	f.calls++
	return f.detections, f.err
}

type fakeCaptioner struct {
	calls   int
	caption string
}

func (f *fakeCaptioner) Caption(ctx context.Context, imagePath string, region BBox) (string, error) {
	f.calls++
	return f.caption, nil
}

func visualStep(fragment string) command.Step {
	return command.Step{NeedsVisualGrounding: true, TargetFragment: fragment}
}

func newGate(ocr *fakeOCR, det *fakeDetector, shots *int) *Gate {
	return &Gate{
		OCR:      ocr,
		Detector: det,
		Screenshot: func(ctx context.Context) (automation.Shot, error) {
			*shots++
			return automation.Shot{Path: "/tmp/shot.png", Width: 1000, Height: 1000}, nil
		},
		Config: DefaultGateConfig(),
	}
}

func TestGateSkipsWithoutVisualSteps(t *testing.T) {
	ocr, det, shots := &fakeOCR{}, &fakeDetector{}, 0
	g := newGate(ocr, det, &shots)

	desc, err := g.Describe(context.Background(), []command.Step{
		{Normalized: "type foo"},
		{Normalized: "press tab"},
	})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if !desc.Skipped || len(desc.Elements) != 0 {
		t.Errorf("description = %+v, want skipped and empty", desc)
	}
	if shots != 0 || ocr.calls != 0 || det.calls != 0 {
		t.Errorf("collaborators touched: shots=%d ocr=%d det=%d", shots, ocr.calls, det.calls)
	}
}

func TestGateSingleScreenshotPerRun(t *testing.T) {
	ocr, det, shots := &fakeOCR{}, &fakeDetector{}, 0
	g := newGate(ocr, det, &shots)

	_, err := g.Describe(context.Background(), []command.Step{
		visualStep("compose"), visualStep("send"), visualStep("settings"),
	})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if shots != 1 || ocr.calls != 1 || det.calls != 1 {
		t.Errorf("shots=%d ocr=%d det=%d, want one each", shots, ocr.calls, det.calls)
	}
}

func TestGateMergeAdoptsOCRText(t *testing.T) {
	ocr := &fakeOCR{regions: []OCRRegion{
		{Text: "Send", BBox: BBox{X1: 20, Y1: 10, X2: 80, Y2: 40}, Confidence: 0.8},
		{Text: "Inbox", BBox: BBox{X1: 20, Y1: 100, X2: 90, Y2: 130}, Confidence: 0.9},
	}}
	det := &fakeDetector{detections: []Detection{
		{Label: "button", BBox: BBox{X1: 0, Y1: 0, X2: 100, Y2: 50}, Confidence: 0.95},
	}}
	shots := 0
	g := newGate(ocr, det, &shots)

	desc, err := g.Describe(context.Background(), []command.Step{visualStep("send")})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(desc.Elements) != 2 {
		t.Fatalf("got %d elements, want 2: %+v", len(desc.Elements), desc.Elements)
	}
	btn := desc.Elements[0]
	if btn.Kind != KindButton || btn.Text != "Send" || btn.Source != SourceDetector {
		t.Errorf("detector element = %+v", btn)
	}
	loose := desc.Elements[1]
	if loose.Kind != KindText || loose.Text != "Inbox" || loose.Source != SourceOCR {
		t.Errorf("ocr element = %+v", loose)
	}
}

func TestGateMergeDropsDuplicateOCRText(t *testing.T) {
	ocr := &fakeOCR{regions: []OCRRegion{
		{Text: "Send", BBox: BBox{X1: 20, Y1: 10, X2: 80, Y2: 40}, Confidence: 0.8},
		{Text: "send", BBox: BBox{X1: 500, Y1: 500, X2: 560, Y2: 530}, Confidence: 0.7},
	}}
	det := &fakeDetector{detections: []Detection{
		{Label: "button", BBox: BBox{X1: 0, Y1: 0, X2: 100, Y2: 50}, Confidence: 0.95},
	}}
	shots := 0
	g := newGate(ocr, det, &shots)

	desc, _ := g.Describe(context.Background(), []command.Step{visualStep("send")})
	if len(desc.Elements) != 1 {
		t.Fatalf("got %d elements, want the duplicate text collapsed: %+v", len(desc.Elements), desc.Elements)
	}
}

func TestGateDropsLowConfidenceOCR(t *testing.T) {
	ocr := &fakeOCR{regions: []OCRRegion{
		{Text: "ghost", BBox: BBox{X1: 0, Y1: 0, X2: 50, Y2: 20}, Confidence: 0.2},
		{Text: "solid", BBox: BBox{X1: 0, Y1: 30, X2: 50, Y2: 50}, Confidence: 0.8},
	}}
	det := &fakeDetector{}
	shots := 0
	g := newGate(ocr, det, &shots)

	desc, _ := g.Describe(context.Background(), []command.Step{visualStep("solid")})
	if len(desc.Elements) != 1 || desc.Elements[0].Text != "solid" {
		t.Errorf("elements = %+v", desc.Elements)
	}
}

func TestGateDegradesOnCollaboratorErrors(t *testing.T) {
	ocr := &fakeOCR{err: errors.New("ocr down")}
	det := &fakeDetector{err: errors.New("detector down")}
	shots := 0
	g := newGate(ocr, det, &shots)

	desc, err := g.Describe(context.Background(), []command.Step{visualStep("anything")})
	if err != nil {
		t.Fatalf("Describe must swallow collaborator errors, got %v", err)
	}
	if len(desc.Elements) != 0 || desc.Skipped {
		t.Errorf("description = %+v, want empty and not skipped", desc)
	}
}

func TestGateCaptionsOnlyWhenEnabled(t *testing.T) {
	det := &fakeDetector{detections: []Detection{
		{Label: "icon", BBox: BBox{X1: 0, Y1: 0, X2: 40, Y2: 40}, Confidence: 0.9},
	}}
	cpt := &fakeCaptioner{caption: "gear icon"}
	shots := 0
	g := newGate(&fakeOCR{}, det, &shots)
	g.Captioner = cpt

	// Disabled by default.
	_, _ = g.Describe(context.Background(), []command.Step{visualStep("gear")})
	if cpt.calls != 0 {
		t.Fatalf("captioner called while disabled")
	}

	g.Config.CaptionEnabled = true
	desc, _ := g.Describe(context.Background(), []command.Step{visualStep("gear")})
	if cpt.calls == 0 {
		t.Fatal("captioner not called")
	}
	if desc.Elements[0].Description != "gear icon" || desc.Elements[0].Text != "" {
		t.Errorf("caption must fill Description only: %+v", desc.Elements[0])
	}
}

func TestGateSkipsCaptionWhenOCRCoversTargets(t *testing.T) {
	ocr := &fakeOCR{regions: []OCRRegion{
		{Text: "Compose", BBox: BBox{X1: 0, Y1: 0, X2: 80, Y2: 30}, Confidence: 0.9},
	}}
	det := &fakeDetector{detections: []Detection{
		{Label: "icon", BBox: BBox{X1: 200, Y1: 200, X2: 240, Y2: 240}, Confidence: 0.9},
	}}
	cpt := &fakeCaptioner{caption: "something"}
	shots := 0
	g := newGate(ocr, det, &shots)
	g.Captioner = cpt
	g.Config.CaptionEnabled = true

	_, _ = g.Describe(context.Background(), []command.Step{visualStep("compose")})
	if cpt.calls != 0 {
		t.Errorf("captioner called although OCR covered every target")
	}
}
