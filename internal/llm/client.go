// Package llm is the language-model boundary of the pipeline. The core is
// implementable and testable with the deterministic Stub; the GenAI client
// is the production implementation. The model is a tool here: it extracts
// target phrases and typing payloads and plans the one-shot fallback, but
// never participates in resolver scoring.
package llm

import "context"

// Client is the full extraction contract the pipeline consumes. Every
// method degrades on error: the caller treats a failure as "no answer".
type Client interface {
	// ExtractTarget returns the single most salient on-screen phrase in
	// the step text, preserving original language and case. Empty means
	// the step has no visual target.
	ExtractTarget(ctx context.Context, stepText string) (string, error)

	// ExtractTypingText returns the literal text a typing step should
	// enter, without surrounding quotes. Empty means nothing to type.
	ExtractTypingText(ctx context.Context, stepText string) (string, error)

	// PlanFallback produces a one-shot action program for the whole
	// instruction when stepwise planning yielded nothing executable. The
	// result is newline-separated primitive calls in the documented
	// program syntax.
	PlanFallback(ctx context.Context, instruction, uiSummary string) (string, error)
}
