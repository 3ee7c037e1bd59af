package command

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func originals(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Original
	}
	return out
}

func TestParseSegmentation(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "multi-step with quoted typing",
			in:   `click on "Compose" then type "Hello, world" and press enter`,
			want: []string{`click on "Compose"`, `type "Hello, world"`, `press enter`},
		},
		{
			name: "typing then key press",
			in:   "type foo then press tab",
			want: []string{"type foo", "press tab"},
		},
		{
			name: "comma separators",
			in:   "click on Settings, then click it again",
			want: []string{"click on Settings", "click it again"},
		},
		{
			name: "spanish conjunctions",
			in:   "haz clic en Enviar luego escribe hola y pulsa intro",
			want: []string{"haz clic en Enviar", "escribe hola", "pulsa intro"},
		},
		{
			name: "trailing period stripped",
			in:   "click on Save.",
			want: []string{"click on Save"},
		},
		{
			name: "single operation fast path keeps quoted comma",
			in:   `type "Hello, world"`,
			want: []string{`type "Hello, world"`},
		},
		{
			name: "bare verb merges forward",
			in:   "click, the Save button",
			want: []string{"click the Save button"},
		},
		{
			name: "inline typing verb splits",
			in:   "click the search box write query",
			want: []string{"click the search box", "write query"},
		},
		{
			name: "press enter stays one step",
			in:   "press enter",
			want: []string{"press enter"},
		},
		{
			name: "unsegmentable text is one step",
			in:   "do something unusual with the thing",
			want: []string{"do something unusual with the thing"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := originals(Parse(tc.in))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tc.in, diff)
			}
		})
	}
}

func TestParseEmptyAndPunctuation(t *testing.T) {
	if got := Parse(""); got != nil {
		t.Errorf("Parse(\"\") = %v, want nil", got)
	}
	if got := Parse("   "); got != nil {
		t.Errorf("Parse(blank) = %v, want nil", got)
	}
	if got := Parse("..."); got != nil {
		t.Errorf("Parse(punctuation) = %v, want nil", got)
	}
}

func TestParseIdempotence(t *testing.T) {
	inputs := []string{
		`click on "Compose" then type "Hello, world" and press enter`,
		"type foo then press tab",
		"click on Settings, then click it again",
		"haz clic arriba a la derecha en el icono de perfil",
		"click, the Save button",
		"open the browser and click on the address bar",
	}
	for _, in := range inputs {
		once := Parse(in)
		twice := Parse(Join(once))
		if diff := cmp.Diff(originals(once), originals(twice)); diff != "" {
			t.Errorf("Parse not idempotent under Join for %q (-once +twice):\n%s", in, diff)
		}
	}
}

func TestParsePreservesQuotedContent(t *testing.T) {
	inputs := []string{
		`type "Hello, world" then press enter`,
		`click on "the, weird; button" and press tab`,
		`escribe "uno, dos y tres"`,
	}
	for _, in := range inputs {
		steps := Parse(in)
		joined := strings.Join(originals(steps), " ")
		for _, span := range quotedSpans(in) {
			if !strings.Contains(joined, span) {
				t.Errorf("quoted span %q from %q lost in steps %v", span, in, originals(steps))
			}
		}
	}
}

// quotedSpans lists all matched double-quoted spans of the input.
func quotedSpans(s string) []string {
	var spans []string
	for {
		open := strings.IndexRune(s, '"')
		if open < 0 {
			break
		}
		rest := s[open+1:]
		close := strings.IndexRune(rest, '"')
		if close < 0 {
			break
		}
		spans = append(spans, rest[:close])
		s = rest[close+1:]
	}
	return spans
}

func TestNormalizeStep(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{", then click Save", "click Save"},
		{"and press enter", "press enter"},
		{"luego escribe hola", "escribe hola"},
		{"click Save", "click Save"},
		{"then", ""},
	}
	for _, tc := range cases {
		if got := NormalizeStep(tc.in); got != tc.want {
			t.Errorf("NormalizeStep(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeStepIdempotent(t *testing.T) {
	inputs := []string{
		", then click Save",
		"and press enter",
		"click on Settings",
		"y luego escribe hola",
	}
	for _, in := range inputs {
		once := NormalizeStep(in)
		if twice := NormalizeStep(once); twice != once {
			t.Errorf("NormalizeStep not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
