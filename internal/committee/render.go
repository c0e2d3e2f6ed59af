package committee

import (
	"fmt"
	"sort"
	"strings"
)

// Render formats the result as plain text for terminal output.
func (r *EvaluationResult) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Overall Score: %.1f / 5.0 (%s)\n", r.OverallScore, r.Framework)
	b.WriteString(strings.Repeat("-", 60) + "\n")

	for _, dim := range allDimensions {
		ds, ok := r.Dimensions[dim]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%-24s %.1f", dim, ds.Score)
		if WeightFor(dim) > 0 {
			fmt.Fprintf(&b, "  (weight %.2f)", WeightFor(dim))
		}
		b.WriteString("\n")
		if ds.Reason != "" {
			fmt.Fprintf(&b, "    %s\n", ds.Reason)
		}
	}

	if len(r.HighDisagreementDimensions) > 0 {
		b.WriteString("\nHigh disagreement:\n")
		for _, dim := range r.HighDisagreementDimensions {
			fmt.Fprintf(&b, "  - %s\n", dim)
		}
	}

	if len(r.JudgeErrors) > 0 {
		b.WriteString("\nFailed judges:\n")
		for _, id := range sortedKeys(r.JudgeErrors) {
			fmt.Fprintf(&b, "  - %s: %s\n", id, r.JudgeErrors[id])
		}
	}

	if r.FinalSuggestion != "" {
		fmt.Fprintf(&b, "\nSuggestion: %s\n", r.FinalSuggestion)
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
