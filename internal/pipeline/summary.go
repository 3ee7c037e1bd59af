package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"deskpilot/internal/perception"
)

// Summarize diffs two screen snapshots into the short spoken-back summary:
// texts that appeared or disappeared, and per-kind count deltas from the
// detector.
func Summarize(before, after *perception.UIDescription) string {
	beforeTexts := textSet(before)
	afterTexts := textSet(after)

	var added, removed []string
	for t := range afterTexts {
		if !beforeTexts[t] {
			added = append(added, t)
		}
	}
	for t := range beforeTexts {
		if !afterTexts[t] {
			removed = append(removed, t)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	deltas := kindDeltas(before, after)

	var parts []string
	if len(added) > 0 {
		parts = append(parts, "new text: "+strings.Join(clip(added, 5), ", "))
	}
	if len(removed) > 0 {
		parts = append(parts, "removed text: "+strings.Join(clip(removed, 5), ", "))
	}
	if len(deltas) > 0 {
		parts = append(parts, strings.Join(deltas, ", "))
	}
	if len(parts) == 0 {
		return "no visible change"
	}
	return strings.Join(parts, "; ")
}

func textSet(d *perception.UIDescription) map[string]bool {
	set := make(map[string]bool)
	if d == nil {
		return set
	}
	for _, el := range d.Elements {
		t := strings.Join(strings.Fields(strings.ToLower(el.Text)), " ")
		if t != "" {
			set[t] = true
		}
	}
	return set
}

func kindDeltas(before, after *perception.UIDescription) []string {
	counts := make(map[perception.Kind]int)
	if before != nil {
		for _, el := range before.Elements {
			if el.Source == perception.SourceDetector {
				counts[el.Kind]--
			}
		}
	}
	if after != nil {
		for _, el := range after.Elements {
			if el.Source == perception.SourceDetector {
				counts[el.Kind]++
			}
		}
	}

	kinds := make([]string, 0, len(counts))
	for k, n := range counts {
		if n != 0 {
			kinds = append(kinds, string(k)+":"+sign(n))
		}
	}
	sort.Strings(kinds)
	return kinds
}

func sign(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

func clip(list []string, max int) []string {
	if len(list) <= max {
		return list
	}
	return list[:max]
}
