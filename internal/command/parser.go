package command

import (
	"strings"
	"unicode"
)

// =============================================================================
// TOKENIZATION
// =============================================================================

// ptoken is one word of the instruction; a quoted span is a single token
// and is never treated as a separator or split point.
type ptoken struct {
	text   string
	quoted bool
}

func (t ptoken) lower() string {
	return strings.ToLower(strings.Trim(t.text, ".,;:!?"))
}

// lex splits an instruction into word tokens, keeping quoted spans intact.
// Commas and semicolons outside quotes become their own tokens so segment
// boundaries survive tokenization.
func lex(s string) []ptoken {
	var toks []ptoken
	var cur strings.Builder
	var quote rune
	flush := func(quoted bool) {
		if cur.Len() > 0 {
			toks = append(toks, ptoken{text: cur.String(), quoted: quoted})
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
		case r == ',' || r == ';':
			flush(false)
			toks = append(toks, ptoken{text: string(r)})
		case unicode.IsSpace(r):
			flush(false)
		default:
			cur.WriteRune(r)
		}
	}
	flush(quote != 0)
	return toks
}

func joinTokens(toks []ptoken) string {
	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		parts = append(parts, t.text)
	}
	return strings.Join(parts, " ")
}

// =============================================================================
// PARSER
// =============================================================================

// Parse segments a raw instruction into ordered steps. It never fails: in
// the worst case the whole instruction comes back as a single step. Quoted
// spans are never split.
func Parse(instruction string) []Step {
	text := strings.TrimSpace(instruction)
	text = strings.TrimSuffix(text, ".")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if isSingleOperation(text) {
		return []Step{makeStep(text)}
	}

	parts := segment(text)
	parts = mergeBareVerbs(parts)
	parts = refineVerbBoundaries(parts)
	parts = dropPunctuationOnly(parts)

	if len(parts) == 0 {
		if isPunctuationOnly(text) {
			return nil
		}
		parts = []string{text}
	}

	steps := make([]Step, 0, len(parts))
	for _, p := range parts {
		steps = append(steps, makeStep(p))
	}
	return steps
}

func makeStep(text string) Step {
	return Step{Original: text, Normalized: NormalizeStep(text)}
}

// NormalizeStep strips leading connectors (then/and/luego/y) and separator
// punctuation. Applying it twice equals applying it once.
func NormalizeStep(s string) string {
	out := strings.TrimSpace(s)
	for {
		trimmed := strings.TrimLeft(out, ",; \t")
		lower := strings.ToLower(trimmed)
		matched := false
		for _, conn := range connectorWords {
			if lower == conn {
				trimmed = ""
				matched = true
				break
			}
			if strings.HasPrefix(lower, conn+" ") {
				trimmed = strings.TrimSpace(trimmed[len(conn):])
				matched = true
				break
			}
		}
		if !matched && trimmed == out {
			return out
		}
		out = strings.TrimSpace(trimmed)
		if out == "" {
			return out
		}
	}
}

// isSingleOperation recognizes instructions that are one simple operation:
// a click/move/press with no separators, or typing whose payload is fully
// quoted. Those return as the sole step without segmentation.
func isSingleOperation(text string) bool {
	toks := lex(text)
	if v, ok := hasAnyVerbPrefix(text, typingVerbs); ok {
		rest := strings.TrimSpace(text[len(v):])
		if len(rest) >= 2 {
			if (rest[0] == '"' && rest[len(rest)-1] == '"') ||
				(rest[0] == '\'' && rest[len(rest)-1] == '\'') {
				return true
			}
		}
	}
	if !startsWithActionVerb(text) {
		return false
	}
	if _, ok := hasAnyVerbPrefix(text, typingVerbs); ok {
		return false
	}
	for i, t := range toks {
		if t.quoted {
			continue
		}
		if t.text == "," || t.text == ";" {
			return false
		}
		w := t.lower()
		switch w {
		case "then", "luego", "and", "y", "después", "despues":
			return false
		}
		if i > 0 && (isTypingVerbWord(w) || isPressVerbWord(w)) {
			// A second verb inside the body means this is not one operation,
			// unless it is the opening verb itself ("press enter").
			if i == 1 && isPressVerbWord(toks[0].lower()) {
				continue
			}
			return false
		}
	}
	return true
}

// segment splits at commas/semicolons outside quotes, then at conjunction
// word boundaries inside each chunk. Separator words are consumed.
func segment(text string) []string {
	toks := lex(text)

	var chunks [][]ptoken
	var cur []ptoken
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, cur)
			cur = nil
		}
	}
	for _, t := range toks {
		if !t.quoted && (t.text == "," || t.text == ";") {
			flush()
			continue
		}
		cur = append(cur, t)
	}
	flush()

	var parts []string
	for _, chunk := range chunks {
		start := 0
		for i, t := range chunk {
			if t.quoted {
				continue
			}
			switch t.lower() {
			case "then", "luego", "and", "y", "después", "despues":
				if i > start {
					parts = append(parts, joinTokens(chunk[start:i]))
				}
				start = i + 1
			}
		}
		if start < len(chunk) {
			parts = append(parts, joinTokens(chunk[start:]))
		}
	}
	return parts
}

// mergeBareVerbs joins a step that is only an action verb with the next
// step when that one does not itself start with a verb: "click, the Save
// button" becomes one step again.
func mergeBareVerbs(parts []string) []string {
	var out []string
	for i := 0; i < len(parts); i++ {
		p := parts[i]
		lower := strings.ToLower(strings.TrimSpace(p))
		if bareActionVerbs[lower] && i+1 < len(parts) && !startsWithActionVerb(parts[i+1]) {
			out = append(out, strings.TrimSpace(p)+" "+strings.TrimSpace(parts[i+1]))
			i++
			continue
		}
		out = append(out, p)
	}
	return out
}

// refineVerbBoundaries splits a step at an inline typing or key-press verb
// so each resulting step starts with exactly one action verb. "enter" only
// counts as a typing verb when it is followed by content and is not the
// argument of a press verb; quoted spans are never split.
func refineVerbBoundaries(parts []string) []string {
	var out []string
	for _, p := range parts {
		toks := lex(p)
		if len(toks) == 0 {
			continue
		}
		start := 0
		for i := 1; i < len(toks); i++ {
			t := toks[i]
			if t.quoted {
				continue
			}
			w := t.lower()
			splitHere := false
			switch {
			case isTypingVerbWord(w), isPressVerbWord(w):
				splitHere = true
			case w == "enter" && i+1 < len(toks) && !isPressVerbWord(toks[i-1].lower()):
				splitHere = true
			}
			if splitHere && i > start {
				out = append(out, joinTokens(toks[start:i]))
				start = i
			}
		}
		if start < len(toks) {
			out = append(out, joinTokens(toks[start:]))
		}
	}
	return out
}

func dropPunctuationOnly(parts []string) []string {
	var out []string
	for _, p := range parts {
		if isPunctuationOnly(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func isPunctuationOnly(s string) bool {
	body := strings.TrimSpace(s)
	if body == "" {
		return true
	}
	for _, r := range body {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// Join is the canonical inverse of Parse for the idempotence law:
// Parse(Join(Parse(x))) equals Parse(x).
func Join(steps []Step) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		parts = append(parts, s.Original)
	}
	return strings.Join(parts, ", ")
}
