package spatial

import "strings"

// The closed bilingual keyword set. Extraction is order-independent and
// duplicates collapse; a conflicting pair on the same axis (top + bottom,
// left + right) yields no qualifier.
var (
	topWords    = map[string]bool{"top": true, "superior": true, "arriba": true}
	bottomWords = map[string]bool{"bottom": true, "inferior": true, "abajo": true}
	leftWords   = map[string]bool{"left": true, "izquierda": true}
	rightWords  = map[string]bool{"right": true, "derecha": true}
	centerWords = map[string]bool{"center": true, "centro": true, "middle": true}

	// Fillers absorbed when they connect two removed qualifier words,
	// as in "arriba a la derecha".
	fillerWords = map[string]bool{"a": true, "la": true, "al": true, "de": true, "del": true}
)

func isQualifierWord(w string) bool {
	return topWords[w] || bottomWords[w] || leftWords[w] || rightWords[w] || centerWords[w]
}

// token is one unit of the command string; quoted spans are single tokens
// and are never inspected or removed.
type token struct {
	text   string
	quoted bool
}

func tokenize(s string) []token {
	var toks []token
	var cur strings.Builder
	var quote rune
	flush := func(quoted bool) {
		if cur.Len() > 0 {
			toks = append(toks, token{text: cur.String(), quoted: quoted})
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
				flush(true)
			}
		case r == '"' || r == '\'':
			flush(false)
			quote = r
			cur.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			flush(false)
		default:
			cur.WriteRune(r)
		}
	}
	// Unterminated quote: keep the span intact anyway.
	flush(quote != 0)
	return toks
}

// key lowercases a token and trims surrounding punctuation for keyword
// comparison. The original token text is what survives stripping.
func key(t token) string {
	return strings.Trim(strings.ToLower(t.text), ".,;:!?")
}

// Extract scans the text outside quoted spans for grid keywords and returns
// the canonical zone, or ZoneNone when nothing (or something contradictory)
// was found.
func Extract(text string) Zone {
	var top, bottom, left, right, center bool
	for _, t := range tokenize(text) {
		if t.quoted {
			continue
		}
		w := key(t)
		switch {
		case topWords[w]:
			top = true
		case bottomWords[w]:
			bottom = true
		case leftWords[w]:
			left = true
		case rightWords[w]:
			right = true
		case centerWords[w]:
			center = true
		}
	}
	if top && bottom {
		return ZoneNone
	}
	if left && right {
		return ZoneNone
	}
	return compose(top, bottom, left, right, center)
}

func compose(top, bottom, left, right, center bool) Zone {
	var row, col string
	switch {
	case top:
		row = "top"
	case bottom:
		row = "bottom"
	}
	switch {
	case left:
		col = "left"
	case right:
		col = "right"
	}
	switch {
	case row != "" && col != "":
		return Zone(row + "-" + col)
	case row != "" && center:
		return Zone(row + "-center")
	case col != "" && center:
		return Zone("center-" + col)
	case row != "":
		return Zone(row)
	case col != "":
		return Zone(col)
	case center:
		return ZoneCenter
	}
	return ZoneNone
}

// Strip removes recognized grid keywords from a command string so they do
// not double-count as text content during target matching. A keyword is
// preserved when it immediately follows "en"/"on" and no other qualifier
// precedes that connective: there the keyword is itself the target name
// ("haz clic en centro" clicks an element called "centro"). Quoted spans
// are always preserved. Strip is idempotent.
func Strip(text string) string {
	toks := tokenize(text)
	remove := make([]bool, len(toks))
	seenQualifier := false
	for i, t := range toks {
		if t.quoted {
			continue
		}
		w := key(t)
		if !isQualifierWord(w) {
			continue
		}
		prev := ""
		if i > 0 && !toks[i-1].quoted {
			prev = key(toks[i-1])
		}
		if (prev == "en" || prev == "on") && !seenQualifier {
			// Target-name position; leave it alone.
			seenQualifier = true
			continue
		}
		remove[i] = true
		seenQualifier = true
	}

	// Absorb fillers sandwiched between two removed qualifiers
	// ("arriba a la derecha" drops the whole phrase).
	for i := range toks {
		if !remove[i] {
			continue
		}
		j := i + 1
		for j < len(toks) && !toks[j].quoted && fillerWords[key(toks[j])] {
			j++
		}
		if j < len(toks) && remove[j] {
			for k := i + 1; k < j; k++ {
				remove[k] = true
			}
		}
	}

	var out []string
	for i, t := range toks {
		if !remove[i] {
			out = append(out, t.text)
		}
	}
	return strings.Join(out, " ")
}
