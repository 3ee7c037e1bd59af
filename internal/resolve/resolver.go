// Package resolve chooses the on-screen element a natural-language fragment
// refers to. Matching is a scored, tie-broken comparison against OCR text
// and captions with multilingual kind synonyms, spatial pruning, and
// confidence-aware scaling.
package resolve

import (
	"fmt"
	"sort"

	"deskpilot/internal/perception"
	"deskpilot/internal/spatial"
)

// EventSink receives the resolver's structured search events.
type EventSink interface {
	Emit(event string, fields map[string]any)
}

// Query is one resolution request.
type Query struct {
	// Fragment is the target phrase, qualifier tokens already stripped.
	Fragment string

	// StepText is the full normalized step, used for kind synonyms.
	StepText string

	// LLMDerived selects the higher score column for fragments the LLM
	// extracted; heuristic fragments score lower.
	LLMDerived bool

	// Zone is the optional spatial qualifier.
	Zone spatial.Zone
}

// Match is a successful resolution: the chosen element, its center point,
// and the reasons that earned it the score.
type Match struct {
	Element perception.UIElement
	X, Y    int
	Score   float64
	Reasons []string
}

// Resolver scores candidates and picks one or none. The zero value uses the
// documented defaults.
type Resolver struct {
	// MinThreshold rejects any best score at or below it (default 25).
	MinThreshold float64

	// RunnerUpMargin is the gap under which an exact-word runner-up beats
	// a within-word best match (default 10).
	RunnerUpMargin float64

	// Events is optional; search events are dropped without it.
	Events EventSink
}

func (r *Resolver) threshold() float64 {
	if r.MinThreshold == 0 {
		return 25
	}
	return r.MinThreshold
}

func (r *Resolver) margin() float64 {
	if r.RunnerUpMargin == 0 {
		return 10
	}
	return r.RunnerUpMargin
}

func (r *Resolver) emit(event string, fields map[string]any) {
	if r.Events != nil {
		r.Events.Emit(event, fields)
	}
}

// Resolve returns the best-scoring element for the query, or ok=false when
// nothing clears the threshold. It is deterministic for fixed inputs and
// never panics across the package boundary.
func (r *Resolver) Resolve(q Query, ui *perception.UIDescription) (m Match, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.emit("ui_element_search_error", map[string]any{
				"fragment": q.Fragment,
				"error":    fmt.Sprint(rec),
			})
			m, ok = Match{}, false
		}
	}()

	r.emit("ui_element_search_start", map[string]any{
		"fragment": q.Fragment,
		"elements": len(ui.Elements),
		"zone":     string(q.Zone),
	})

	frag := normalize(q.Fragment)
	if frag == "" || ui.Empty() {
		r.emit("ui_element_search_no_match", map[string]any{"fragment": q.Fragment})
		return Match{}, false
	}
	subs := subFragments(frag)

	// Spatial pruning; an empty result degrades to the unfiltered set.
	candidates := ui.Elements
	if q.Zone != spatial.ZoneNone {
		pruned := zoneFilter(q.Zone, ui.Width, ui.Height, candidates)
		if len(pruned) > 0 {
			candidates = pruned
		}
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, el := range candidates {
		sc := r.score(q, frag, subs, el, ui)
		if sc.score > 0 {
			scored = append(scored, sc)
		}
	}
	if len(scored) == 0 {
		r.emit("ui_element_search_no_match", map[string]any{"fragment": q.Fragment})
		return Match{}, false
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].less(scored[j]) })

	best := scored[0]
	if best.score <= r.threshold() {
		r.emit("ui_element_search_no_match", map[string]any{
			"fragment": q.Fragment,
			"best":     best.score,
		})
		return Match{}, false
	}

	// A thin within-word win must yield to an exact-word runner-up.
	if len(scored) > 1 {
		second := scored[1]
		if best.score-second.score < r.margin() &&
			best.tier == tierWithinCapped &&
			(second.tier == tierExact || second.tier == tierWord) {
			second.reasons = append(second.reasons, "preferred exact-word match over within-word leader")
			best = second
		}
	}

	cx, cy := best.el.BBox.Center()
	r.emit("ui_element_search_success", map[string]any{
		"fragment": q.Fragment,
		"text":     best.el.Text,
		"score":    best.score,
		"x":        cx,
		"y":        cy,
	})
	return Match{Element: best.el, X: cx, Y: cy, Score: best.score, Reasons: best.reasons}, true
}

// zoneFilter keeps candidates whose bbox center lies in the zone.
// Candidates without a valid bbox are retained so a bad detection cannot
// hide an otherwise good match.
func zoneFilter(z spatial.Zone, width, height int, elems []perception.UIElement) []perception.UIElement {
	if z == spatial.ZoneNone {
		return elems
	}
	var out []perception.UIElement
	for _, e := range elems {
		if !e.BBox.Valid(width, height) {
			out = append(out, e)
			continue
		}
		cx, cy := e.BBox.Center()
		if z.Contains(width, height, cx, cy) {
			out = append(out, e)
		}
	}
	return out
}

type scoredCandidate struct {
	el      perception.UIElement
	score   float64
	tier    matchTier
	reasons []string
}

// less orders by score, then confidence, then bbox area, then reading order
// (top-to-bottom, left-to-right).
func (a scoredCandidate) less(b scoredCandidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.el.Confidence != b.el.Confidence {
		return a.el.Confidence > b.el.Confidence
	}
	if aa, ba := a.el.BBox.Area(), b.el.BBox.Area(); aa != ba {
		return aa > ba
	}
	if a.el.BBox.Y1 != b.el.BBox.Y1 {
		return a.el.BBox.Y1 < b.el.BBox.Y1
	}
	return a.el.BBox.X1 < b.el.BBox.X1
}

// score accumulates the additive terms, applies confidence scaling, then
// the out-of-zone reduction. The ordering matters: golden tests pin it.
func (r *Resolver) score(q Query, frag string, subs []string, el perception.UIElement, ui *perception.UIDescription) scoredCandidate {
	sc := scoredCandidate{el: el}

	var base float64
	textEvidence := false
	if text := normalize(el.Text); text != "" {
		points, tier, reason := textTier(frag, subs, text, q.LLMDerived)
		base += points
		sc.tier = tier
		textEvidence = tier != tierNone
		if reason != "" {
			sc.reasons = append(sc.reasons, reason)
		}
		if plural := pluralBonus(frag, text); plural > 0 {
			base += plural
			textEvidence = true
			sc.reasons = append(sc.reasons, "singular/plural variant")
		}
	} else if desc := normalize(el.Description); desc != "" {
		points, tier, reason := textTier(frag, subs, desc, q.LLMDerived)
		base += points * 2 / 3
		sc.tier = tier
		textEvidence = tier != tierNone
		if reason != "" {
			sc.reasons = append(sc.reasons, "caption: "+reason)
		}
	}

	// Kind, zone and button bonuses reinforce a text or caption hit; they
	// never produce a match on their own.
	if !textEvidence {
		return sc
	}

	if kindMentioned(q.StepText, el.Kind) {
		base += 30
		sc.reasons = append(sc.reasons, "step mentions element kind "+string(el.Kind))
	}

	inZone := false
	if q.Zone != spatial.ZoneNone && el.BBox.Valid(ui.Width, ui.Height) {
		cx, cy := el.BBox.Center()
		inZone = q.Zone.Contains(ui.Width, ui.Height, cx, cy)
	}
	if inZone {
		base += 30
		sc.reasons = append(sc.reasons, "inside "+string(q.Zone)+" zone")
	}

	if el.Kind == perception.KindButton {
		base += 5
	}

	score := base * (0.7 + 0.3*el.Confidence)
	if q.Zone != spatial.ZoneNone && !inZone {
		score *= 0.3
		sc.reasons = append(sc.reasons, "outside "+string(q.Zone)+" zone")
	}
	sc.score = score
	return sc
}
