package command

import (
	"context"
	"strings"

	"deskpilot/internal/automation"
	"deskpilot/internal/spatial"
)

// TargetExtractor is the narrow LLM contract the annotator consumes: given
// step text it returns the single most salient on-screen phrase, preserving
// language and case, or empty when there is none. Any error counts as
// empty.
type TargetExtractor interface {
	ExtractTarget(ctx context.Context, stepText string) (string, error)
}

// Annotator decides per step whether it needs on-screen grounding and, if
// so, extracts the target fragment and spatial qualifier.
type Annotator struct {
	// Extractor is optional; without it only the fallback extraction runs.
	Extractor TargetExtractor
}

// Annotate fills the grounding fields of the step in place.
func (a *Annotator) Annotate(ctx context.Context, s *Step) {
	text := s.Normalized
	s.Spatial = spatial.Extract(text)
	s.NeedsVisualGrounding = needsVisualGrounding(text)

	typing := false
	if !s.NeedsVisualGrounding {
		if _, ok := TypingVerbPrefix(text); !ok {
			return
		}
		typing = true
	}

	// Qualifier tokens are stripped before extraction so they cannot
	// double-count as text content during resolution.
	stripped := text
	if s.Spatial != spatial.ZoneNone {
		stripped = spatial.Strip(text)
	}

	if typing {
		a.annotateTypingTarget(ctx, s, stripped)
		return
	}

	if a.Extractor != nil {
		if got, err := a.Extractor.ExtractTarget(ctx, stripped); err == nil {
			if frag := strings.TrimSpace(got); frag != "" {
				s.TargetFragment = frag
				s.FragmentSource = FragmentLLM
				return
			}
		}
	}
	if frag := fallbackTarget(stripped); frag != "" {
		s.TargetFragment = frag
		s.FragmentSource = FragmentFallback
	}
}

// annotateTypingTarget extracts the field a typing step should click before
// entering text. Grounding stays off; the planner resolves the fragment only
// when the run already has perception. Only an explicit location phrase
// counts as a target here, never the payload itself, so extraction runs
// only when a location marker is present.
func (a *Annotator) annotateTypingTarget(ctx context.Context, s *Step, stripped string) {
	_, loc := SplitTypingLocation(stripped)
	if loc == "" {
		return
	}
	if a.Extractor != nil {
		if got, err := a.Extractor.ExtractTarget(ctx, stripped); err == nil {
			if frag := strings.TrimSpace(got); frag != "" {
				s.TargetFragment = frag
				s.FragmentSource = FragmentLLM
				return
			}
		}
	}
	s.TargetFragment = loc
	s.FragmentSource = FragmentFallback
}

// referenceFillers may appear after a click verb without making the step a
// grounded one: "click it again" points back at the previous target.
var referenceFillers = map[string]bool{
	"again": true, "otra": true, "vez": true, "de": true, "nuevo": true,
}

// needsVisualGrounding reports whether the step demands locating something
// on screen. Pure typing and keyboard steps never do; neither do reference
// clicks nor clicks whose target is a keyboard key name.
func needsVisualGrounding(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if _, ok := hasAnyVerbPrefix(trimmed, pressVerbs); ok {
		return false
	}
	if _, ok := hasAnyVerbPrefix(trimmed, typingVerbs); ok {
		return false
	}
	if v, ok := hasAnyVerbPrefix(trimmed, clickVerbs); ok {
		rest := strings.TrimSpace(trimmed[len(v):])
		if rest == "" {
			return false // bare click: a reference step
		}
		words := strings.Fields(strings.ToLower(rest))
		allRef := true
		for _, w := range words {
			w = strings.Trim(w, ".,;:!?")
			if !referenceWords[w] && !referenceFillers[w] && !fillerWords[w] {
				allRef = false
				break
			}
		}
		if allRef {
			return false
		}
		if len(words) == 1 {
			if _, ok := automation.CanonicalKey(words[0]); ok {
				return false
			}
		}
		return true
	}
	// Moves, drags, selections and anything else lands in the UI-action
	// branch of the planner, which needs a resolved target.
	return true
}

// fallbackTarget is the non-LLM extraction path: the first quoted span, or
// the first content word of length >= 2 after the action verb and leading
// connective words.
func fallbackTarget(text string) string {
	if q := FirstQuotedSpan(text); q != "" {
		return q
	}
	trimmed := strings.TrimSpace(text)
	for _, set := range [][]string{clickVerbs, moveVerbs, typingVerbs, pressVerbs} {
		if v, ok := hasAnyVerbPrefix(trimmed, set); ok {
			trimmed = strings.TrimSpace(trimmed[len(v):])
			break
		}
	}
	for _, w := range strings.Fields(trimmed) {
		word := strings.Trim(w, ".,;:!?\"'")
		if len([]rune(word)) < 2 {
			continue
		}
		if fillerWords[strings.ToLower(word)] {
			continue
		}
		return word
	}
	return ""
}

// typingLocationMarkers introduce the field a typing step should click
// before entering text. Longest markers first so "in the" wins over "in".
var typingLocationMarkers = []string{
	" into the ", " in the ", " on the ",
	" en la ", " en el ", " dentro de ", " en ",
}

// SplitTypingLocation splits a typing payload from a trailing location
// phrase: "hello in the search box" becomes "hello" and "search box". A
// marker right after the verb leaves an empty payload ("in the search box").
// Markers inside quoted spans never split.
func SplitTypingLocation(text string) (payload, location string) {
	lower := strings.ToLower(text)
	for _, m := range typingLocationMarkers {
		lead := m[1:]
		if strings.HasPrefix(lower, lead) {
			if loc := trimLocation(text[len(lead):]); loc != "" {
				return "", loc
			}
		}
		idx := indexOutsideQuotes(lower, m)
		if idx < 0 {
			continue
		}
		if loc := trimLocation(text[idx+len(m):]); loc != "" {
			return strings.TrimSpace(text[:idx]), loc
		}
	}
	return text, ""
}

func trimLocation(s string) string {
	return strings.TrimSpace(strings.Trim(s, ".,;:!?"))
}

// indexOutsideQuotes finds the first occurrence of sub in text that is not
// inside a double- or single-quoted span.
func indexOutsideQuotes(text, sub string) int {
	var quote rune
	for i, r := range text {
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}
		if r == '"' || r == '\'' {
			quote = r
			continue
		}
		if strings.HasPrefix(text[i:], sub) {
			return i
		}
	}
	return -1
}

// FirstQuotedSpan returns the content of the first matched quoted span in
// the text, or empty.
func FirstQuotedSpan(text string) string {
	for _, q := range []rune{'"', '\''} {
		open := strings.IndexRune(text, q)
		if open < 0 {
			continue
		}
		close := strings.IndexRune(text[open+1:], q)
		if close < 0 {
			continue
		}
		return text[open+1 : open+1+close]
	}
	return ""
}
