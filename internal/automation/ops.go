// Package automation defines the primitive action model the planner
// compiles steps into, the safe-text escaping contract, the canonical
// keyboard key table, and the driver contract that executes primitives
// against a real surface.
package automation

import (
	"fmt"
	"strings"
)

// OpKind enumerates the primitives the planner may emit.
type OpKind string

const (
	OpMove        OpKind = "move"
	OpClick       OpKind = "click"
	OpDoubleClick OpKind = "double_click"
	OpRightClick  OpKind = "right_click"
	OpType        OpKind = "type"
	OpPress       OpKind = "press"
	OpScroll      OpKind = "scroll"
	OpSleep       OpKind = "sleep"
	OpComment     OpKind = "comment"
)

// Op is one primitive action. Only the fields relevant to its kind are set;
// Text always carries safe text (see SafeText).
type Op struct {
	Kind    OpKind
	X, Y    int
	Text    string
	Key     string
	Amount  int
	Seconds float64
	Note    string
}

// Program is the ordered primitive sequence for one run.
type Program []Op

// Render produces the human-readable action program, one primitive per
// line. Comments render as script comments so a skipped step stays visible
// in the output.
func (p Program) Render() string {
	var b strings.Builder
	for i, op := range p {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch op.Kind {
		case OpMove:
			fmt.Fprintf(&b, "move(%d, %d)", op.X, op.Y)
		case OpClick:
			b.WriteString("click()")
		case OpDoubleClick:
			b.WriteString("double_click()")
		case OpRightClick:
			b.WriteString("right_click()")
		case OpType:
			fmt.Fprintf(&b, "type(%q)", op.Text)
		case OpPress:
			fmt.Fprintf(&b, "press(%q)", op.Key)
		case OpScroll:
			fmt.Fprintf(&b, "scroll(%d)", op.Amount)
		case OpSleep:
			fmt.Fprintf(&b, "sleep(%.1f)", op.Seconds)
		case OpComment:
			fmt.Fprintf(&b, "# %s", op.Note)
		}
	}
	return b.String()
}

// SafeText escapes characters the typing primitive treats as meta: curly
// braces are doubled so the automation layer types them literally. Nothing
// else is transformed.
func SafeText(t string) string {
	t = strings.ReplaceAll(t, "{", "{{")
	return strings.ReplaceAll(t, "}", "}}")
}
