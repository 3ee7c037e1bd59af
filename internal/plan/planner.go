// Package plan classifies each step and compiles it into a primitive
// action program. Classification is a strict priority cascade: reference,
// keyboard, typing, then the default UI-action branch that resolves a
// target on screen.
package plan

import (
	"context"
	"fmt"
	"strings"

	"deskpilot/internal/automation"
	"deskpilot/internal/command"
	"deskpilot/internal/llm"
	"deskpilot/internal/logging"
	"deskpilot/internal/perception"
	"deskpilot/internal/resolve"
)

// StepKind is the classification a step lands in.
type StepKind string

const (
	KindReference StepKind = "reference"
	KindKeyboard  StepKind = "keyboard"
	KindTyping    StepKind = "typing"
	KindUIAction  StepKind = "ui_action"
)

// ActionClass keys the stability waiter's fallback sleep table.
type ActionClass string

const (
	ClassAppOpen    ActionClass = "app_open"
	ClassMajorClick ActionClass = "major_click"
	ClassNavKey     ActionClass = "nav_key"
	ClassMinor      ActionClass = "minor"
)

// RunState is the per-run mutable state the orchestrator owns: the last
// successfully targeted element and the kind of the last action. The
// planner only reads it; mutations arrive as StateUpdates committed after
// execution.
type RunState struct {
	LastElement    *perception.UIElement
	LastX, LastY   int
	HasLast        bool
	LastActionKind string // click | double_click | right_click | type | keyboard | reference | none
}

// NewRunState returns the initial state.
func NewRunState() *RunState {
	return &RunState{LastActionKind: "none"}
}

// StateUpdate is the run-state mutation a step earns. The orchestrator
// applies it only after the step's program actually executed, so a failed
// or skipped step never seeds a later reference.
type StateUpdate struct {
	Element    *perception.UIElement
	X, Y       int
	HasTarget  bool
	ActionKind string
}

// Apply commits the update. A nil update is a no-op.
func (s *RunState) Apply(u *StateUpdate) {
	if u == nil {
		return
	}
	if u.HasTarget {
		s.LastElement = u.Element
		s.LastX, s.LastY = u.X, u.Y
		s.HasLast = true
	}
	if u.ActionKind != "" {
		s.LastActionKind = u.ActionKind
	}
}

// Result is one planned step: the primitive program, the explanation lines,
// and the outcome metadata the orchestrator records.
type Result struct {
	Kind         StepKind
	Class        ActionClass
	Program      automation.Program
	Explanations []string

	// Skipped marks a step that produced no executable action; the reason
	// is human-readable and also emitted as a program comment.
	Skipped    bool
	SkipReason string

	// Update is applied to the run state once the program executed.
	Update *StateUpdate
}

// EventSink receives planner warnings (unknown keys, empty typing text).
type EventSink interface {
	Emit(event string, fields map[string]any)
}

// Planner compiles annotated steps against the run's UI description.
type Planner struct {
	Resolver *resolve.Resolver
	LLM      llm.Client // optional; fallback extraction runs without it
	Events   EventSink  // optional
}

func (p *Planner) emit(event string, fields map[string]any) {
	if p.Events != nil {
		p.Events.Emit(event, fields)
	}
}

// Plan classifies the step and synthesizes its program. It never returns an
// error: failure modes become skipped results with reasons.
func (p *Planner) Plan(ctx context.Context, step command.Step, ui *perception.UIDescription, state *RunState) Result {
	text := step.Normalized
	switch {
	case command.IsReference(text):
		return p.planReference(step, state)
	case p.isKeyboard(text):
		return p.planKeyboard(step, state)
	case p.isTyping(text):
		return p.planTyping(ctx, step, ui, state)
	default:
		return p.planUIAction(step, ui, state)
	}
}

func (p *Planner) isKeyboard(text string) bool {
	_, ok := command.PressVerbPrefix(text)
	return ok
}

func (p *Planner) isTyping(text string) bool {
	_, ok := command.TypingVerbPrefix(text)
	return ok
}

// =============================================================================
// REFERENCE
// =============================================================================

func (p *Planner) planReference(step command.Step, state *RunState) Result {
	if !state.HasLast {
		return Result{
			Kind:       KindReference,
			Class:      ClassMinor,
			Skipped:    true,
			SkipReason: "no previous target to click again",
			Program:    automation.Program{{Kind: automation.OpComment, Note: "no previous target to click again"}},
		}
	}
	desc := "previous target"
	if state.LastElement != nil && state.LastElement.Text != "" {
		desc = fmt.Sprintf("%q", state.LastElement.Text)
	}
	res := Result{
		Kind:  KindReference,
		Class: ClassMajorClick,
		Program: automation.Program{
			{Kind: automation.OpMove, X: state.LastX, Y: state.LastY},
			{Kind: automation.OpClick},
		},
		Explanations: []string{
			fmt.Sprintf("clicking %s again at (%d, %d)", desc, state.LastX, state.LastY),
		},
		Update: &StateUpdate{ActionKind: "reference"},
	}
	return res
}

// =============================================================================
// KEYBOARD
// =============================================================================

func (p *Planner) planKeyboard(step command.Step, state *RunState) Result {
	text := step.Normalized
	v, _ := command.PressVerbPrefix(text)
	keys, unknown := extractKeys(strings.TrimSpace(text[len(v):]))

	log := logging.Get(logging.CategoryExecutor)
	for _, u := range unknown {
		log.Warn("unknown key name %q dropped", u)
		p.emit("command.step.key_dropped", map[string]any{"key": u, "step": step.Original})
	}

	res := Result{Kind: KindKeyboard, Class: ClassMinor}
	if len(keys) == 0 {
		res.Skipped = true
		res.SkipReason = "no recognized key names"
		res.Program = automation.Program{{Kind: automation.OpComment, Note: res.SkipReason}}
		return res
	}
	for _, k := range keys {
		res.Program = append(res.Program, automation.Op{Kind: automation.OpPress, Key: k})
		res.Explanations = append(res.Explanations, "pressing "+k)
		if isNavKey(k) {
			res.Class = ClassNavKey
		}
	}
	res.Update = &StateUpdate{ActionKind: "keyboard"}
	return res
}

func isNavKey(k string) bool {
	switch k {
	case "enter", "tab", "pageup", "pagedown", "home", "end":
		return true
	}
	return false
}

// extractKeys resolves key names in order, trying two-word spoken names
// ("page up", "flecha arriba") before single words. Unknown words come back
// separately so the caller can warn.
func extractKeys(text string) (keys []string, unknown []string) {
	words := strings.Fields(strings.ToLower(text))
	for i := 0; i < len(words); i++ {
		w := strings.Trim(words[i], ".,;:!?")
		if w == "" || w == "the" || w == "key" || w == "la" || w == "tecla" || w == "and" || w == "y" {
			continue
		}
		if i+1 < len(words) {
			pair := w + " " + strings.Trim(words[i+1], ".,;:!?")
			if k, ok := automation.CanonicalKey(pair); ok {
				keys = append(keys, k)
				i++
				continue
			}
		}
		if k, ok := automation.CanonicalKey(w); ok {
			keys = append(keys, k)
			continue
		}
		unknown = append(unknown, w)
	}
	return keys, unknown
}

// =============================================================================
// TYPING
// =============================================================================

func (p *Planner) planTyping(ctx context.Context, step command.Step, ui *perception.UIDescription, state *RunState) Result {
	res := Result{Kind: KindTyping, Class: ClassMinor}

	// Payload first: an empty one skips the step before any pre-click ops
	// or state updates exist.
	text, trailing := p.typingText(ctx, step)
	if text == "" {
		logging.Get(logging.CategoryExecutor).Warn("typing step with empty text: %q", step.Original)
		p.emit("command.step.empty_typing", map[string]any{"step": step.Original})
		res.Skipped = true
		res.SkipReason = "nothing to type"
		res.Program = automation.Program{{Kind: automation.OpComment, Note: "nothing to type"}}
		return res
	}

	res.Update = &StateUpdate{ActionKind: "type"}

	// Click a resolved target first when the step names one and the run
	// has perception to resolve against.
	if step.TargetFragment != "" && !ui.Empty() {
		if m, ok := p.Resolver.Resolve(resolve.Query{
			Fragment:   step.TargetFragment,
			StepText:   step.Normalized,
			LLMDerived: step.FragmentSource == command.FragmentLLM,
			Zone:       step.Spatial,
		}, ui); ok {
			res.Program = append(res.Program,
				automation.Op{Kind: automation.OpMove, X: m.X, Y: m.Y},
				automation.Op{Kind: automation.OpClick},
			)
			res.Explanations = append(res.Explanations,
				fmt.Sprintf("clicking %q before typing", m.Element.Text))
			res.Update.Element = &m.Element
			res.Update.X, res.Update.Y = m.X, m.Y
			res.Update.HasTarget = true
		}
	}

	safe := automation.SafeText(text)
	res.Program = append(res.Program, automation.Op{Kind: automation.OpType, Text: safe})
	res.Explanations = append(res.Explanations, fmt.Sprintf("typing %q", text))
	for _, k := range trailing {
		res.Program = append(res.Program, automation.Op{Kind: automation.OpPress, Key: k})
		res.Explanations = append(res.Explanations, "pressing "+k)
		if isNavKey(k) {
			res.Class = ClassNavKey
		}
	}
	return res
}

// trailingPressMarkers split a typing payload from a trailing key press.
var trailingPressMarkers = []string{
	" then press ", " y presiona ", " y pulsa ", " and press ",
}

// typingText extracts the text to type and any trailing keys. Primary path
// is the LLM; the fallback cascade is quoted text after the verb, then
// content before a trailing press marker, then everything after the verb.
func (p *Planner) typingText(ctx context.Context, step command.Step) (string, []string) {
	text := step.Normalized
	v, _ := command.TypingVerbPrefix(text)
	rest := strings.TrimSpace(text[len(v):])

	var trailing []string
	lower := strings.ToLower(rest)
	for _, marker := range trailingPressMarkers {
		if idx := strings.Index(lower, marker); idx >= 0 {
			keys, _ := extractKeys(rest[idx+len(marker):])
			trailing = keys
			rest = strings.TrimSpace(rest[:idx])
			break
		}
	}

	if p.LLM != nil {
		if out, err := p.LLM.ExtractTypingText(ctx, step.Normalized); err == nil {
			if t := strings.TrimSpace(out); t != "" {
				return t, trailing
			}
		}
	}
	if q := command.FirstQuotedSpan(rest); q != "" {
		return q, trailing
	}
	// When the annotator found a location phrase the payload ends where it
	// starts: "hello in the search box" types only "hello".
	if step.TargetFragment != "" {
		if payload, loc := command.SplitTypingLocation(rest); loc != "" {
			return payload, trailing
		}
	}
	return rest, trailing
}

// =============================================================================
// UI ACTION
// =============================================================================

func (p *Planner) planUIAction(step command.Step, ui *perception.UIDescription, state *RunState) Result {
	res := Result{Kind: KindUIAction, Class: ClassMajorClick}
	if isAppOpen(step.Normalized) {
		res.Class = ClassAppOpen
	}

	if step.TargetFragment == "" {
		res.Skipped = true
		res.SkipReason = "no target could be extracted from the step"
		res.Program = automation.Program{{Kind: automation.OpComment, Note: res.SkipReason}}
		return res
	}

	m, ok := p.Resolver.Resolve(resolve.Query{
		Fragment:   step.TargetFragment,
		StepText:   step.Normalized,
		LLMDerived: step.FragmentSource == command.FragmentLLM,
		Zone:       step.Spatial,
	}, ui)
	if !ok {
		res.Skipped = true
		res.SkipReason = fmt.Sprintf("found %d elements, none matched %q", len(ui.Elements), step.TargetFragment)
		res.Program = automation.Program{{Kind: automation.OpComment, Note: res.SkipReason}}
		return res
	}

	res.Program = automation.Program{{Kind: automation.OpMove, X: m.X, Y: m.Y}}
	label := m.Element.Text
	if label == "" {
		label = m.Element.Description
	}

	actionKind := "click"
	switch {
	case command.DoubleClickVerb(step.Normalized):
		res.Program = append(res.Program, automation.Op{Kind: automation.OpDoubleClick})
		actionKind = "double_click"
		res.Explanations = append(res.Explanations,
			fmt.Sprintf("double-clicking %q at (%d, %d)", label, m.X, m.Y))
	case command.RightClickVerb(step.Normalized):
		res.Program = append(res.Program, automation.Op{Kind: automation.OpRightClick})
		actionKind = "right_click"
		res.Explanations = append(res.Explanations,
			fmt.Sprintf("right-clicking %q at (%d, %d)", label, m.X, m.Y))
	default:
		if _, isMove := command.MoveVerbPrefix(step.Normalized); isMove {
			actionKind = "none"
			res.Class = ClassMinor
			res.Explanations = append(res.Explanations,
				fmt.Sprintf("moving to %q at (%d, %d)", label, m.X, m.Y))
		} else {
			res.Program = append(res.Program, automation.Op{Kind: automation.OpClick})
			res.Explanations = append(res.Explanations,
				fmt.Sprintf("clicking %q at (%d, %d)", label, m.X, m.Y))
		}
	}

	res.Update = &StateUpdate{Element: &m.Element, X: m.X, Y: m.Y, HasTarget: true}
	if actionKind != "none" {
		res.Update.ActionKind = actionKind
	}
	return res
}

// isAppOpen recognizes steps that launch applications; those get the long
// stabilization budget.
func isAppOpen(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range []string{"open ", "launch ", "start ", "abre ", "inicia ", "ejecuta "} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
