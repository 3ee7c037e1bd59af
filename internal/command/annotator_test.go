package command

import (
	"context"
	"errors"
	"testing"

	"deskpilot/internal/llm"
	"deskpilot/internal/spatial"
)

func annotated(t *testing.T, a *Annotator, text string) Step {
	t.Helper()
	steps := Parse(text)
	if len(steps) != 1 {
		t.Fatalf("Parse(%q) produced %d steps, want 1", text, len(steps))
	}
	a.Annotate(context.Background(), &steps[0])
	return steps[0]
}

func TestNeedsVisualGrounding(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"click on the Compose button", true},
		{"move to the search box", true},
		{"haz clic en el icono de perfil", true},
		{"type hello", false},
		{"escribe hola", false},
		{"press enter", false},
		{"pulsa intro", false},
		{"click", false},          // bare reference
		{"click it again", false}, // reference words only
		{"click enter", false},    // key name as click target
		{"select the whole paragraph", true},
	}
	for _, tc := range cases {
		if got := needsVisualGrounding(tc.in); got != tc.want {
			t.Errorf("needsVisualGrounding(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAnnotateLLMPrimary(t *testing.T) {
	stub := &llm.Stub{Targets: map[string]string{
		"haz clic en el icono de perfil": "icono de perfil",
	}}
	a := &Annotator{Extractor: stub}

	s := annotated(t, a, "haz clic arriba a la derecha en el icono de perfil")
	if s.Spatial != spatial.ZoneTopRight {
		t.Errorf("Spatial = %q, want top-right", s.Spatial)
	}
	if s.TargetFragment != "icono de perfil" {
		t.Errorf("TargetFragment = %q, want %q", s.TargetFragment, "icono de perfil")
	}
	if s.FragmentSource != FragmentLLM {
		t.Errorf("FragmentSource = %q, want llm", s.FragmentSource)
	}
	if len(stub.Calls) != 1 || stub.Calls[0] != "target:haz clic en el icono de perfil" {
		t.Errorf("extractor saw %v, want the qualifier-stripped step", stub.Calls)
	}
}

func TestAnnotateFallbackOnLLMError(t *testing.T) {
	a := &Annotator{Extractor: &llm.Stub{Err: errors.New("model offline")}}

	s := annotated(t, a, `click on "Compose"`)
	if s.TargetFragment != "Compose" {
		t.Errorf("TargetFragment = %q, want the quoted span", s.TargetFragment)
	}
	if s.FragmentSource != FragmentFallback {
		t.Errorf("FragmentSource = %q, want fallback", s.FragmentSource)
	}
}

func TestAnnotateFallbackFirstContentWord(t *testing.T) {
	a := &Annotator{}
	s := annotated(t, a, "click on the Settings")
	if s.TargetFragment != "Settings" {
		t.Errorf("TargetFragment = %q, want %q", s.TargetFragment, "Settings")
	}
}

func TestAnnotateNonVisualStepsSkipExtraction(t *testing.T) {
	stub := &llm.Stub{}
	a := &Annotator{Extractor: stub}
	for _, in := range []string{"type hello", "press enter"} {
		s := annotated(t, a, in)
		if s.NeedsVisualGrounding {
			t.Errorf("step %q should not need grounding", in)
		}
		if s.TargetFragment != "" {
			t.Errorf("step %q got fragment %q, want none", in, s.TargetFragment)
		}
	}
	if len(stub.Calls) != 0 {
		t.Errorf("extractor called %v for non-visual steps", stub.Calls)
	}
}

func TestSplitTypingLocation(t *testing.T) {
	cases := []struct {
		in       string
		payload  string
		location string
	}{
		{"hello in the search box", "hello", "search box"},
		{"hola en el buscador", "hola", "buscador"},
		{"in the search box", "", "search box"},
		{"hello world", "hello world", ""},
		{`"fish in the sea"`, `"fish in the sea"`, ""},
		{`"hello" in the search box`, `"hello"`, "search box"},
	}
	for _, tc := range cases {
		p, loc := SplitTypingLocation(tc.in)
		if p != tc.payload || loc != tc.location {
			t.Errorf("SplitTypingLocation(%q) = %q, %q; want %q, %q",
				tc.in, p, loc, tc.payload, tc.location)
		}
	}
}

func TestAnnotateTypingLocationFallback(t *testing.T) {
	a := &Annotator{}
	cases := []struct {
		in   string
		frag string
	}{
		{"type hello in the search box", "search box"},
		{"escribe hola en el buscador", "buscador"},
		{"type in the search box", "search box"},
		{"type hello", ""},
		{`type "fish in the sea"`, ""},
	}
	for _, tc := range cases {
		s := annotated(t, a, tc.in)
		if s.NeedsVisualGrounding {
			t.Errorf("typing step %q should not need grounding", tc.in)
		}
		if s.TargetFragment != tc.frag {
			t.Errorf("Annotate(%q) fragment = %q, want %q", tc.in, s.TargetFragment, tc.frag)
		}
	}
}

func TestAnnotateTypingLocationLLMPrimary(t *testing.T) {
	stub := &llm.Stub{Targets: map[string]string{
		"type hello in the search box": "search box",
	}}
	a := &Annotator{Extractor: stub}

	s := annotated(t, a, "type hello in the search box")
	if s.TargetFragment != "search box" || s.FragmentSource != FragmentLLM {
		t.Errorf("fragment = %q (%s), want the extracted field", s.TargetFragment, s.FragmentSource)
	}
	if len(stub.Calls) != 1 {
		t.Fatalf("extractor calls = %v", stub.Calls)
	}

	// Without a location phrase the payload is not offered to the model.
	_ = annotated(t, a, "type hello")
	if len(stub.Calls) != 1 {
		t.Errorf("extractor consulted for a location-less typing step: %v", stub.Calls)
	}
}

func TestIsReference(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"click", true},
		{"click it", true},
		{"click it again", true},
		{"haz clic otra vez", true},
		{"click on Settings", false},
		{"press enter", false},
	}
	for _, tc := range cases {
		if got := IsReference(tc.in); got != tc.want {
			t.Errorf("IsReference(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestClassifyVerbs(t *testing.T) {
	if !DoubleClickVerb("double click on the file") {
		t.Error("double click not recognized")
	}
	if !RightClickVerb("clic derecho en el archivo") {
		t.Error("spanish right click not recognized")
	}
	if DoubleClickVerb("click on the file") {
		t.Error("plain click classified as double")
	}
	if _, ok := TypingVerbPrefix("enter your name"); !ok {
		t.Error("leading enter with content should be a typing verb")
	}
	if _, ok := TypingVerbPrefix("enter"); ok {
		t.Error("bare enter is not a typing verb")
	}
	if v, ok := PressVerbPrefix("pulsa intro"); !ok || v != "pulsa" {
		t.Errorf("PressVerbPrefix = %q, %v", v, ok)
	}
}
