package resolve

import (
	"strings"
	"unicode"

	"deskpilot/internal/perception"
)

// matchTier records the strongest match kind a candidate earned; the
// runner-up rule keys off it.
type matchTier int

const (
	tierNone matchTier = iota
	tierWithinCapped
	tierWithin
	tierSuffix
	tierPrefix
	tierWord
	tierExact
)

// normalize lowercases, strips non-alphanumerics except whitespace, and
// collapses internal whitespace.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// subFragments returns the whole fragment plus each word longer than two
// characters, so "llm control" is tried as itself, "llm", and "control".
func subFragments(frag string) []string {
	subs := []string{frag}
	words := strings.Fields(frag)
	if len(words) < 2 {
		return subs
	}
	for _, w := range words {
		if len([]rune(w)) > 2 {
			subs = append(subs, w)
		}
	}
	return subs
}

// Tier point values, LLM-derived column first.
var tierPoints = map[matchTier][2]float64{
	tierWord:         {90, 70},
	tierPrefix:       {75, 60},
	tierSuffix:       {65, 50},
	tierWithin:       {40, 30},
	tierWithinCapped: {20, 15},
}

func points(t matchTier, llm bool) float64 {
	p := tierPoints[t]
	if llm {
		return p[0]
	}
	return p[1]
}

// textTier finds the strongest tier any sub-fragment earns against the
// normalized candidate text.
func textTier(frag string, subs []string, text string, llm bool) (float64, matchTier, string) {
	if text == frag {
		return 100, tierExact, "exact match"
	}

	best := tierNone
	bestSub := ""
	consider := func(t matchTier, sub string) {
		if t > best {
			best = t
			bestSub = sub
		}
	}

	for _, sub := range subs {
		switch {
		case containsWord(text, sub):
			consider(tierWord, sub)
		case strings.HasPrefix(text, sub):
			consider(tierPrefix, sub)
		case strings.HasSuffix(text, sub):
			consider(tierSuffix, sub)
		case strings.Contains(text, sub):
			consider(insideWordTier(sub, text), sub)
		}
	}

	if best == tierNone {
		return 0, tierNone, ""
	}
	reason := string(map[matchTier]string{
		tierWord:         "word match",
		tierPrefix:       "prefix match",
		tierSuffix:       "suffix match",
		tierWithin:       "within-word match",
		tierWithinCapped: "weak within-word match",
	}[best])
	return points(best, llm), best, reason + " on \"" + bestSub + "\""
}

// insideWordTier classifies a substring hit that is not on a word boundary.
// Short fragments lost inside much longer words are capped; a fragment
// under five characters is only considered at all in that capped form.
func insideWordTier(sub, text string) matchTier {
	word := containingWord(text, sub)
	subLen := len([]rune(sub))
	wordLen := len([]rune(word))
	if subLen >= 5 {
		if float64(subLen) < 0.4*float64(wordLen) {
			return tierWithinCapped
		}
		return tierWithin
	}
	if wordLen > 2*subLen {
		return tierWithinCapped
	}
	return tierNone
}

// containsWord reports whether sub appears in text aligned to word
// boundaries (possibly spanning several words).
func containsWord(text, sub string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], sub)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(sub)
		leftOK := start == 0 || text[start-1] == ' '
		rightOK := end == len(text) || text[end] == ' '
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
		if idx >= len(text) {
			return false
		}
	}
}

// containingWord returns the first word of text that contains sub.
func containingWord(text, sub string) string {
	for _, w := range strings.Fields(text) {
		if strings.Contains(w, sub) {
			return w
		}
	}
	return sub
}

// pluralBonus adds a small bump when exactly one of a fragment word and a
// candidate word is the other plus a trailing "s", both longer than three
// characters.
func pluralBonus(frag, text string) float64 {
	for _, fw := range strings.Fields(frag) {
		if len(fw) <= 3 {
			continue
		}
		for _, cw := range strings.Fields(text) {
			if len(cw) <= 3 {
				continue
			}
			if fw == cw+"s" || cw == fw+"s" {
				return 5
			}
		}
	}
	return 0
}

// kindSynonyms is the closed per-kind synonym table consulted against the
// step text.
var kindSynonyms = map[perception.Kind][]string{
	perception.KindButton:     {"button", "botón", "boton", "btn"},
	perception.KindInputField: {"field", "input", "box", "campo", "cuadro", "textbox"},
	perception.KindMenuItem:   {"menu", "menú", "option", "opción", "opcion", "dropdown"},
	perception.KindCheckbox:   {"checkbox", "casilla", "check"},
	perception.KindLink:       {"link", "enlace"},
	perception.KindIcon:       {"icon", "icono"},
	perception.KindTab:        {"tab", "pestaña", "pestana"},
}

func kindMentioned(stepText string, kind perception.Kind) bool {
	syns, ok := kindSynonyms[kind]
	if !ok {
		return false
	}
	words := strings.Fields(normalize(stepText))
	for _, w := range words {
		for _, syn := range syns {
			if w == normalize(syn) {
				return true
			}
		}
	}
	return false
}
