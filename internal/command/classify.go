package command

import "strings"

// Exported verb views consumed by the step planner's classification
// cascade. They all operate on normalized step text.

// ClickVerbPrefix returns the click verb the text opens with, if any.
func ClickVerbPrefix(text string) (string, bool) {
	return hasAnyVerbPrefix(text, clickVerbs)
}

// DoubleClickVerb reports whether the opening click verb is a double-click.
func DoubleClickVerb(text string) bool {
	v, ok := hasAnyVerbPrefix(text, clickVerbs)
	return ok && strings.HasPrefix(v, "double") || ok && strings.HasPrefix(v, "doble")
}

// RightClickVerb reports whether the opening click verb is a right-click.
func RightClickVerb(text string) bool {
	v, ok := hasAnyVerbPrefix(text, clickVerbs)
	return ok && (strings.HasPrefix(v, "right") || strings.HasPrefix(v, "clic derecho"))
}

// MoveVerbPrefix returns the move/drag/select verb the text opens with.
func MoveVerbPrefix(text string) (string, bool) {
	return hasAnyVerbPrefix(text, moveVerbs)
}

// TypingVerbPrefix returns the typing verb the text opens with. English
// "enter" counts only when followed by content.
func TypingVerbPrefix(text string) (string, bool) {
	if v, ok := hasAnyVerbPrefix(text, typingVerbs); ok {
		return v, true
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	if strings.HasPrefix(lower, "enter ") && len(strings.Fields(lower)) > 1 {
		return "enter", true
	}
	return "", false
}

// PressVerbPrefix returns the key-press verb the text opens with.
func PressVerbPrefix(text string) (string, bool) {
	return hasAnyVerbPrefix(text, pressVerbs)
}

// IsReference reports whether the step points back at the previous target:
// a standalone click verb, or a click verb whose object is only reference
// words and fillers ("click it again").
func IsReference(text string) bool {
	trimmed := strings.TrimSpace(text)
	v, ok := hasAnyVerbPrefix(trimmed, clickVerbs)
	if !ok {
		return false
	}
	rest := strings.TrimSpace(trimmed[len(v):])
	if rest == "" {
		return true
	}
	for _, w := range strings.Fields(strings.ToLower(rest)) {
		w = strings.Trim(w, ".,;:!?")
		if !referenceWords[w] && !referenceFillers[w] && !fillerWords[w] {
			return false
		}
	}
	return true
}
