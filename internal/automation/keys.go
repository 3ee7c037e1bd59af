package automation

import (
	"regexp"
	"strings"
)

// keySynonyms maps spoken key names, Spanish and English, to canonical key
// identifiers. The set is closed; unknown names are the caller's problem
// (the planner drops them with a warning).
var keySynonyms = map[string]string{
	"enter": "enter", "intro": "enter", "return": "enter",
	"escape": "escape", "esc": "escape",
	"tab": "tab", "tabulador": "tab",
	"space": "space", "espacio": "space", "spacebar": "space",
	"backspace": "backspace", "retroceso": "backspace", "borrar": "backspace",
	"delete": "delete", "del": "delete", "suprimir": "delete", "supr": "delete",
	"up": "up", "arriba": "up", "flecha arriba": "up", "arrow up": "up",
	"down": "down", "abajo": "down", "flecha abajo": "down", "arrow down": "down",
	"left": "left", "izquierda": "left", "flecha izquierda": "left", "arrow left": "left",
	"right": "right", "derecha": "right", "flecha derecha": "right", "arrow right": "right",
	"home": "home", "inicio": "home",
	"end": "end", "fin": "end",
	"page up": "pageup", "pageup": "pageup",
	"page down": "pagedown", "pagedown": "pagedown",
	"control": "ctrl", "ctrl": "ctrl",
	"alt": "alt",
	"shift": "shift", "mayus": "shift", "mayús": "shift",
	"command": "win", "cmd": "win", "win": "win", "windows": "win", "super": "win",
	"capslock": "capslock", "caps lock": "capslock",
	"insert": "insert",
	"printscreen": "printscreen", "print screen": "printscreen",
}

var fnKeyRe = regexp.MustCompile(`^f([1-9]|1[0-2])$`)

// CanonicalKey resolves a spoken key name to its canonical identifier.
// Single alphanumeric characters and f1–f12 pass through unchanged.
func CanonicalKey(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	if k, ok := keySynonyms[n]; ok {
		return k, true
	}
	if fnKeyRe.MatchString(n) {
		return n, true
	}
	if len([]rune(n)) == 1 {
		r := []rune(n)[0]
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return n, true
		}
	}
	return "", false
}
