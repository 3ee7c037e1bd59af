package automation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var callPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// ParseProgram parses the textual program syntax back into primitives. It
// accepts the same forms Render produces; the fallback planner's model
// output goes through here so malformed lines fail loudly instead of
// executing partially.
func ParseProgram(text string) (Program, error) {
	var p Program
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			p = append(p, Op{Kind: OpComment, Note: strings.TrimSpace(line[1:])})
			continue
		}
		m := callPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("unparseable program line %q", line)
		}
		name, args := m[1], strings.TrimSpace(m[2])
		op, err := parseCall(name, args)
		if err != nil {
			return nil, fmt.Errorf("line %q: %w", line, err)
		}
		p = append(p, op)
	}
	return p, nil
}

func parseCall(name, args string) (Op, error) {
	switch name {
	case "move":
		parts := strings.SplitN(args, ",", 2)
		if len(parts) != 2 {
			return Op{}, fmt.Errorf("move needs two coordinates")
		}
		x, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		y, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return Op{}, fmt.Errorf("bad move coordinates %q", args)
		}
		return Op{Kind: OpMove, X: x, Y: y}, nil
	case "click":
		return Op{Kind: OpClick}, nil
	case "double_click":
		return Op{Kind: OpDoubleClick}, nil
	case "right_click":
		return Op{Kind: OpRightClick}, nil
	case "type":
		s, err := unquoteArg(args)
		if err != nil {
			return Op{}, err
		}
		return Op{Kind: OpType, Text: SafeText(s)}, nil
	case "press":
		s, err := unquoteArg(args)
		if err != nil {
			return Op{}, err
		}
		key, ok := CanonicalKey(s)
		if !ok {
			return Op{}, fmt.Errorf("unknown key %q", s)
		}
		return Op{Kind: OpPress, Key: key}, nil
	case "scroll":
		n, err := strconv.Atoi(args)
		if err != nil {
			return Op{}, fmt.Errorf("bad scroll amount %q", args)
		}
		return Op{Kind: OpScroll, Amount: n}, nil
	case "sleep":
		f, err := strconv.ParseFloat(args, 64)
		if err != nil {
			return Op{}, fmt.Errorf("bad sleep seconds %q", args)
		}
		return Op{Kind: OpSleep, Seconds: f}, nil
	}
	return Op{}, fmt.Errorf("unknown primitive %q", name)
}

func unquoteArg(args string) (string, error) {
	if s, err := strconv.Unquote(args); err == nil {
		return s, nil
	}
	// Model output sometimes arrives unquoted; take it literally.
	if !strings.ContainsAny(args, `"\`) {
		return args, nil
	}
	return "", fmt.Errorf("bad string argument %s", args)
}
