// Package command segments a raw user instruction into ordered atomic steps
// and annotates each step with what the rest of the pipeline needs: whether
// the step must be grounded against the screen, the target fragment, and
// any spatial qualifier.
package command

import "deskpilot/internal/spatial"

// FragmentSource records which extraction path produced a target fragment.
// The resolver weighs LLM-derived fragments higher than heuristic ones.
type FragmentSource string

const (
	FragmentNone     FragmentSource = ""
	FragmentLLM      FragmentSource = "llm"
	FragmentFallback FragmentSource = "fallback"
)

// Step is one atomic segment of the instruction.
type Step struct {
	// Original is the text exactly as segmented.
	Original string

	// Normalized has leading connectors (then/and/luego/y) stripped.
	Normalized string

	// NeedsVisualGrounding is set when the step must locate something on
	// screen before it can execute.
	NeedsVisualGrounding bool

	// TargetFragment is the extracted on-screen phrase, when any.
	TargetFragment string

	// FragmentSource tags how TargetFragment was obtained.
	FragmentSource FragmentSource

	// Spatial is the canonical grid qualifier, or ZoneNone.
	Spatial spatial.Zone
}
