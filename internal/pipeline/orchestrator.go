// Package pipeline drives one run end to end: parse, annotate, perceive,
// then plan/execute/wait per step, with the screen-change summary, the
// one-shot fallback planner, and the history append at the end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"deskpilot/internal/automation"
	"deskpilot/internal/command"
	"deskpilot/internal/history"
	"deskpilot/internal/llm"
	"deskpilot/internal/logging"
	"deskpilot/internal/perception"
	"deskpilot/internal/plan"
	"deskpilot/internal/screenshot"
	"deskpilot/internal/stability"
)

var (
	// ErrBusy rejects a run while another holds the desktop.
	ErrBusy = errors.New("another run is in progress")

	// ErrEmptyInstruction rejects blank input before any history write.
	ErrEmptyInstruction = errors.New("instruction is empty")
)

// Outcome is a step's final status.
type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// StepOutcome reports one step of the run.
type StepOutcome struct {
	Step    string
	Outcome Outcome
	Reasons []string
	Error   string
}

// RunOutcome is the caller-visible result of a run.
type RunOutcome struct {
	RunID         string
	Success       bool
	Steps         []StepOutcome
	ActionProgram string
	BeforePath    string
	AfterPath     string
	ScreenSummary string
}

// Options tunes one run.
type Options struct {
	CaptureScreenshots  bool
	EnableStabilityWait bool
}

// DefaultOptions returns the documented defaults: screenshots and the
// stability wait both on.
func DefaultOptions() Options {
	return Options{CaptureScreenshots: true, EnableStabilityWait: true}
}

// Orchestrator owns the run sequence. All collaborator fields must be set
// except Waiter, Screens, History and LLM, which are optional and skipped
// when nil.
type Orchestrator struct {
	Annotator *command.Annotator
	Gate      *perception.Gate
	Planner   *plan.Planner
	Driver    automation.Driver
	Waiter    *stability.Waiter
	History   *history.Store
	Screens   *screenshot.Store
	LLM       llm.Client

	// StepPause is the scripted pause between steps (default 1s).
	StepPause time.Duration

	mu      sync.Mutex
	sweepWG sync.WaitGroup
}

func (o *Orchestrator) stepPause() time.Duration {
	if o.StepPause == 0 {
		return time.Second
	}
	return o.StepPause
}

// Run executes one instruction. Runs are serialized: a second caller gets
// ErrBusy instead of waiting. Cancellation via ctx aborts at the next
// suspension point; the truncated run is still written to history.
func (o *Orchestrator) Run(ctx context.Context, instruction string, opts Options) (*RunOutcome, error) {
	if !o.mu.TryLock() {
		return nil, ErrBusy
	}
	defer o.mu.Unlock()

	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, ErrEmptyInstruction
	}

	runID := uuid.NewString()
	events := &logging.EventWriter{RunID: runID}
	log := logging.Get(logging.CategoryPipeline)
	log.Info("run %s: %q", runID, instruction)

	// The run holds the planner and resolver exclusively; point their event
	// sinks at this run's writer so searches carry the run ID.
	o.Planner.Events = events
	if o.Planner.Resolver != nil {
		o.Planner.Resolver.Events = events
	}

	events.Emit("command.received", map[string]any{"instruction": instruction})

	steps := command.Parse(instruction)
	stepTexts := make([]string, len(steps))
	for i, s := range steps {
		stepTexts[i] = s.Normalized
	}
	events.Emit("command.steps_split", map[string]any{"steps": stepTexts})

	for i := range steps {
		o.Annotator.Annotate(ctx, &steps[i])
		events.Emit("command.step.annotated", map[string]any{
			"index":           i,
			"step":            steps[i].Normalized,
			"needs_grounding": steps[i].NeedsVisualGrounding,
			"fragment":        steps[i].TargetFragment,
			"zone":            string(steps[i].Spatial),
		})
	}

	// Perception happens at most once per run. A hard screenshot failure
	// degrades to an empty description; visual steps then skip on no-match.
	ui, err := o.Gate.Describe(ctx, steps)
	if err != nil {
		log.Warn("perception degraded: %v", err)
	}
	events.Emit("command.perception", map[string]any{
		"screenshot_skipped": ui.Skipped,
		"elements_count":     len(ui.Elements),
	})

	out := &RunOutcome{RunID: runID}
	visual := !ui.Skipped

	if visual && opts.CaptureScreenshots && o.Screens != nil {
		path := o.Screens.Path(screenshot.PrefixBefore)
		if _, err := o.Driver.Screenshot(ctx, nil, path); err == nil {
			out.BeforePath = path
		} else {
			log.Warn("before screenshot failed: %v", err)
		}
	}

	state := plan.NewRunState()
	var program automation.Program
	cancelled := o.runSteps(ctx, steps, ui, state, opts, events, out, &program)

	// Fallback: nothing executable came out of stepwise planning.
	if !cancelled && o.LLM != nil && !anyExecuted(out.Steps) {
		o.runFallback(ctx, instruction, ui, opts, events, out, &program)
	}

	if visual && opts.CaptureScreenshots && o.Screens != nil && !cancelled {
		o.captureAfter(ctx, ui, out)
	}

	out.ActionProgram = program.Render()
	out.Success = !cancelled && allExecuted(out.Steps)
	events.Emit("command.completed", map[string]any{
		"success": out.Success,
		"steps":   len(out.Steps),
	})

	o.appendHistory(instruction, out)
	o.afterRun()

	if cancelled {
		return out, ctx.Err()
	}
	return out, nil
}

// runSteps plans and executes each step in order. It returns true when the
// run was cancelled mid-way; out and program carry whatever completed.
func (o *Orchestrator) runSteps(
	ctx context.Context,
	steps []command.Step,
	ui *perception.UIDescription,
	state *plan.RunState,
	opts Options,
	events *logging.EventWriter,
	out *RunOutcome,
	program *automation.Program,
) bool {
	for i, step := range steps {
		events.Emit("command.step.start", map[string]any{"index": i, "step": step.Normalized})

		res := o.Planner.Plan(ctx, step, ui, state)
		*program = append(*program, res.Program...)

		so := StepOutcome{Step: step.Normalized, Reasons: res.Explanations}
		switch {
		case res.Skipped:
			so.Outcome = OutcomeSkipped
			so.Reasons = append(so.Reasons, res.SkipReason)
			events.Emit("command.step.skipped", map[string]any{
				"index": i, "step": step.Normalized, "reason": res.SkipReason,
			})
		default:
			err := automation.Execute(ctx, o.Driver, res.Program)
			if err != nil {
				so.Outcome = OutcomeFailed
				so.Error = err.Error()
				events.Emit("command.step.result", map[string]any{
					"index": i, "step": step.Normalized, "outcome": string(OutcomeFailed), "error": err.Error(),
				})
				if ctx.Err() != nil {
					out.Steps = append(out.Steps, so)
					return true
				}
			} else {
				so.Outcome = OutcomeExecuted
				// The run state only ever reflects actions that really
				// happened; a failed click must not seed a later reference.
				state.Apply(res.Update)
				events.Emit("command.step.result", map[string]any{
					"index": i, "step": step.Normalized, "outcome": string(OutcomeExecuted),
				})
				if opts.EnableStabilityWait && o.Waiter != nil {
					if err := o.Waiter.Wait(ctx, res.Class); err != nil {
						out.Steps = append(out.Steps, so)
						return true
					}
				}
			}
		}
		out.Steps = append(out.Steps, so)

		// The scripted pause separates every pair of steps, whatever the
		// first one's outcome was.
		if i < len(steps)-1 {
			pause := o.stepPause().Seconds()
			*program = append(*program,
				automation.Op{Kind: automation.OpComment, Note: "waiting between steps"},
				automation.Op{Kind: automation.OpSleep, Seconds: pause},
			)
			if err := automation.Execute(ctx, o.Driver, automation.Program{
				{Kind: automation.OpSleep, Seconds: pause},
			}); err != nil {
				return true
			}
		}
	}
	return false
}

// runFallback asks the model for a one-shot program over the whole
// instruction. Always logged; its outcome lands in the step list so history
// records it.
func (o *Orchestrator) runFallback(
	ctx context.Context,
	instruction string,
	ui *perception.UIDescription,
	opts Options,
	events *logging.EventWriter,
	out *RunOutcome,
	program *automation.Program,
) {
	events.Emit("command.fallback.triggered", map[string]any{"instruction": instruction})
	log := logging.Get(logging.CategoryPipeline)

	text, err := o.LLM.PlanFallback(ctx, instruction, uiSummary(ui))
	if err != nil || strings.TrimSpace(text) == "" {
		log.Warn("fallback planner produced nothing: %v", err)
		out.Steps = append(out.Steps, StepOutcome{
			Step: instruction, Outcome: OutcomeSkipped,
			Reasons: []string{"fallback planner produced no program"},
		})
		return
	}
	fb, err := automation.ParseProgram(text)
	if err != nil {
		log.Warn("fallback program rejected: %v", err)
		out.Steps = append(out.Steps, StepOutcome{
			Step: instruction, Outcome: OutcomeSkipped,
			Reasons: []string{"fallback program was malformed"},
		})
		return
	}

	*program = append(*program, automation.Op{Kind: automation.OpComment, Note: "fallback plan"})
	*program = append(*program, fb...)
	so := StepOutcome{Step: instruction, Reasons: []string{"one-shot fallback plan"}}
	if err := automation.Execute(ctx, o.Driver, fb); err != nil {
		so.Outcome = OutcomeFailed
		so.Error = err.Error()
	} else {
		so.Outcome = OutcomeExecuted
		if opts.EnableStabilityWait && o.Waiter != nil {
			_ = o.Waiter.Wait(ctx, plan.ClassMajorClick)
		}
	}
	out.Steps = append(out.Steps, so)
}

// captureAfter takes the post-run frame and computes the screen-change
// summary against the run's perception snapshot.
func (o *Orchestrator) captureAfter(ctx context.Context, before *perception.UIDescription, out *RunOutcome) {
	log := logging.Get(logging.CategoryPipeline)
	path := o.Screens.Path(screenshot.PrefixAfter)
	shot, err := o.Driver.Screenshot(ctx, nil, path)
	if err != nil {
		log.Warn("after screenshot failed: %v", err)
		return
	}
	out.AfterPath = path
	after := o.Gate.Snapshot(ctx, shot)
	out.ScreenSummary = Summarize(before, after)
}

// appendHistory writes the run exactly once; failures are logged, never
// surfaced.
func (o *Orchestrator) appendHistory(instruction string, out *RunOutcome) {
	if o.History == nil {
		return
	}
	stepTexts := make([]string, len(out.Steps))
	for i, s := range out.Steps {
		stepTexts[i] = fmt.Sprintf("%s [%s]", s.Step, s.Outcome)
	}
	err := o.History.Append(history.Entry{
		Timestamp:     time.Now(),
		Command:       instruction,
		Steps:         stepTexts,
		Code:          out.ActionProgram,
		Success:       out.Success,
		ScreenSummary: out.ScreenSummary,
	})
	if err != nil {
		logging.Get(logging.CategoryHistory).Error("history append failed: %v", err)
	}
}

// afterRun fires the detached retention sweeps.
func (o *Orchestrator) afterRun() {
	screens, hist := o.Screens, o.History
	o.sweepWG.Add(1)
	go func() {
		defer o.sweepWG.Done()
		if screens != nil {
			if err := screens.Sweep(time.Now()); err != nil {
				logging.Get(logging.CategoryScreenshot).Warn("screenshot sweep failed: %v", err)
			}
		}
		if hist != nil {
			if err := hist.Sweep(time.Now()); err != nil {
				logging.Get(logging.CategoryHistory).Warn("history sweep failed: %v", err)
			}
		}
	}()
}

// AwaitSweeps blocks until any detached retention sweeps finish. Callers
// shutting down (and tests) use it; runs never wait on it.
func (o *Orchestrator) AwaitSweeps() {
	o.sweepWG.Wait()
}

func anyExecuted(steps []StepOutcome) bool {
	for _, s := range steps {
		if s.Outcome == OutcomeExecuted {
			return true
		}
	}
	return false
}

func allExecuted(steps []StepOutcome) bool {
	if len(steps) == 0 {
		return false
	}
	for _, s := range steps {
		if s.Outcome != OutcomeExecuted {
			return false
		}
	}
	return true
}

// uiSummary renders the element list as the compact text the fallback
// planner prompt consumes.
func uiSummary(ui *perception.UIDescription) string {
	if ui.Empty() {
		return "no elements detected"
	}
	var b strings.Builder
	for i, el := range ui.Elements {
		if i > 0 {
			b.WriteString("; ")
		}
		label := el.Text
		if label == "" {
			label = el.Description
		}
		cx, cy := el.BBox.Center()
		fmt.Fprintf(&b, "%s %q at (%d, %d)", el.Kind, label, cx, cy)
	}
	return b.String()
}
