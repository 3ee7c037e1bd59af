package command

import "strings"

// Verb vocabulary shared by the parser and the annotator. Each list is a
// closed set; multi-word forms come before their prefixes so greedy
// matching picks the longest.

var clickVerbs = []string{
	"double click on", "double click", "doble clic en", "doble clic",
	"right click on", "right click", "clic derecho en", "clic derecho",
	"click on", "click", "haz clic en", "haz clic", "clic en", "clic",
	"pincha en", "pincha",
}

var moveVerbs = []string{
	"move to", "move", "mueve a", "mueve el raton a", "mueve",
	"drag to", "drag", "arrastra a", "arrastra",
	"select", "selecciona",
}

var typingVerbs = []string{
	"type", "write", "escribe", "teclea",
}

var pressVerbs = []string{
	"press", "hit", "pulsa", "presiona",
}

// bareActionVerbs are step bodies that carry no target of their own; the
// parser merges them with the following non-verb step.
var bareActionVerbs = map[string]bool{
	"click":       true,
	"click on":    true,
	"haz clic":    true,
	"haz clic en": true,
	"clic":        true,
	"move to":     true,
	"mueve a":     true,
	"press":       true,
	"pulsa":       true,
}

// referenceWords point a click back at the previously targeted element.
var referenceWords = map[string]bool{
	"it": true, "that": true, "this": true,
	"eso": true, "esto": true, "ahi": true, "ahí": true,
}

// connectorWords are the leading connectors NormalizeStep strips.
var connectorWords = []string{"then", "and", "luego", "y", "después", "despues"}

// fillerWords are skipped when the fallback extractor hunts for the first
// content word of a target fragment.
var fillerWords = map[string]bool{
	"the": true, "a": true, "an": true, "on": true, "to": true, "in": true,
	"at": true, "of": true, "el": true, "la": true, "los": true, "las": true,
	"un": true, "una": true, "en": true, "de": true, "del": true, "al": true,
}

// hasAnyVerbPrefix reports whether the lowercased text begins with any verb
// from the list, at a word boundary, and returns the matched verb.
func hasAnyVerbPrefix(text string, verbs []string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, v := range verbs {
		if lower == v {
			return v, true
		}
		if strings.HasPrefix(lower, v+" ") {
			return v, true
		}
	}
	return "", false
}

// startsWithActionVerb reports whether the text opens with any recognized
// action verb (click, move, typing or key-press family).
func startsWithActionVerb(text string) bool {
	for _, set := range [][]string{clickVerbs, moveVerbs, typingVerbs, pressVerbs} {
		if _, ok := hasAnyVerbPrefix(text, set); ok {
			return true
		}
	}
	return false
}

func isTypingVerbWord(w string) bool {
	switch w {
	case "type", "write", "escribe", "teclea":
		return true
	}
	return false
}

func isPressVerbWord(w string) bool {
	switch w {
	case "press", "hit", "pulsa", "presiona":
		return true
	}
	return false
}
