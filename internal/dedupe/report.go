package dedupe

import (
	"fmt"
	"strings"
)

// GroupKind distinguishes how a duplicate group was detected.
type GroupKind string

const (
	// KindTitleExact groups cases sharing a byte-identical title.
	KindTitleExact GroupKind = "title_exact"
	// KindStepsNearMatch groups cases whose step text is similar beyond the
	// configured threshold, closed transitively.
	KindStepsNearMatch GroupKind = "steps_near_match"
)

// MergeSuggestion is a synthesized replacement for a duplicate group.
type MergeSuggestion struct {
	// ID is a synthetic identifier derived from the first member.
	ID string `json:"id" yaml:"id"`

	// Title is the longest member title (first occurrence wins ties).
	Title string `json:"title" yaml:"title"`

	// Preconditions come from the first member.
	Preconditions string `json:"preconditions,omitempty" yaml:"preconditions,omitempty"`

	// Steps is the order-stable union of all members' non-empty trimmed steps.
	Steps []string `json:"steps,omitempty" yaml:"steps,omitempty"`

	// ExpectedResults is the order-stable union of expected results.
	ExpectedResults []string `json:"expected_results,omitempty" yaml:"expected_results,omitempty"`

	// SourceIDs preserves the original member ids for traceability.
	SourceIDs []string `json:"source_ids" yaml:"source_ids"`
}

// DuplicateGroup is a set of two or more cases considered redundant.
type DuplicateGroup struct {
	Kind      GroupKind       `json:"kind" yaml:"kind"`
	MemberIDs []string        `json:"member_ids" yaml:"member_ids"`
	Titles    []string        `json:"titles" yaml:"titles"`
	Merge     MergeSuggestion `json:"merge_suggestion" yaml:"merge_suggestion"`
}

// DuplicateTypes counts duplicate case instances (occurrences beyond the
// first) by detection type. Unlike DuplicateReport.DuplicateCount, which
// counts groups, these are instance-level counts.
type DuplicateTypes struct {
	Title           int `json:"title" yaml:"title"`
	Steps           int `json:"steps" yaml:"steps"`
	ExpectedResults int `json:"expected_results" yaml:"expected_results"`
}

// CategoryStats summarizes duplication within one category. Within-category
// detection uses exact comparison only, not near-duplicate clustering.
type CategoryStats struct {
	Category        string  `json:"category" yaml:"category"`
	Total           int     `json:"total" yaml:"total"`
	TitleDuplicates int     `json:"title_duplicates" yaml:"title_duplicates"`
	StepsDuplicates int     `json:"steps_duplicates" yaml:"steps_duplicates"`
	DuplicateRate   float64 `json:"duplicate_rate" yaml:"duplicate_rate"`
}

// DuplicateReport is the full output of duplicate detection. Collections of
// size zero or one produce the zero-valued report (TotalCases aside).
type DuplicateReport struct {
	TotalCases int `json:"total_cases" yaml:"total_cases"`

	// DuplicateCount is the number of duplicate groups, not duplicate case
	// instances. Large groups therefore understate redundancy; see
	// DuplicateTypes for instance-level counts.
	DuplicateCount int `json:"duplicate_count" yaml:"duplicate_count"`

	// DuplicateRate is DuplicateCount/TotalCases as a percentage, rounded
	// to two decimals.
	DuplicateRate float64 `json:"duplicate_rate" yaml:"duplicate_rate"`

	Groups         []DuplicateGroup `json:"groups,omitempty" yaml:"groups,omitempty"`
	PerCategory    []CategoryStats  `json:"per_category,omitempty" yaml:"per_category,omitempty"`
	DuplicateTypes DuplicateTypes   `json:"duplicate_types" yaml:"duplicate_types"`
}

// GroupsOfKind returns the groups with the given kind, in report order.
func (r *DuplicateReport) GroupsOfKind(kind GroupKind) []DuplicateGroup {
	if r == nil {
		return nil
	}
	var out []DuplicateGroup
	for _, g := range r.Groups {
		if g.Kind == kind {
			out = append(out, g)
		}
	}
	return out
}

// Summary produces the plain-text digest of the report that callers feed
// into judge context. It stays intentionally compact: a few headline numbers
// plus previews of the merge suggestions.
func (r *DuplicateReport) Summary(label string) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## %s duplicate analysis\n", label)
	fmt.Fprintf(&b, "- duplicate rate: %.2f%%\n", r.DuplicateRate)
	fmt.Fprintf(&b, "- duplicate groups: %d\n", r.DuplicateCount)
	fmt.Fprintf(&b, "- exact-title groups: %d\n", len(r.GroupsOfKind(KindTitleExact)))
	fmt.Fprintf(&b, "- near-duplicate step groups: %d\n", len(r.GroupsOfKind(KindStepsNearMatch)))

	if len(r.Groups) > 0 {
		b.WriteString("\n### Merge suggestions\n")
		for i, g := range r.Groups {
			ids := g.MemberIDs
			idText := strings.Join(ids, ", ")
			if len(ids) > 3 {
				idText = strings.Join(ids[:3], ", ") + fmt.Sprintf(" and %d more", len(ids)-3)
			}
			fmt.Fprintf(&b, "%d. [%s] cases %s -> %q", i+1, g.Kind, idText, g.Merge.Title)
			if len(g.Merge.Steps) > 0 {
				fmt.Fprintf(&b, " (%d merged steps)", len(g.Merge.Steps))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Render produces a human-readable report for terminal output.
func (r *DuplicateReport) Render() string {
	if r == nil {
		return "No duplicate report available"
	}

	var b strings.Builder
	b.WriteString("Duplicate Detection Report:\n")
	b.WriteString(strings.Repeat("-", 50) + "\n\n")

	fmt.Fprintf(&b, "Total Cases:      %d\n", r.TotalCases)
	fmt.Fprintf(&b, "Duplicate Groups: %d\n", r.DuplicateCount)
	fmt.Fprintf(&b, "Duplicate Rate:   %.2f%%\n", r.DuplicateRate)
	fmt.Fprintf(&b, "Instance Counts:  title=%d steps=%d expected=%d\n",
		r.DuplicateTypes.Title, r.DuplicateTypes.Steps, r.DuplicateTypes.ExpectedResults)

	if len(r.PerCategory) > 0 {
		b.WriteString("\nPer Category:\n")
		for _, cs := range r.PerCategory {
			fmt.Fprintf(&b, "  %-24s total=%-4d title=%-3d steps=%-3d rate=%.2f%%\n",
				cs.Category, cs.Total, cs.TitleDuplicates, cs.StepsDuplicates, cs.DuplicateRate)
		}
	}

	for i, g := range r.Groups {
		fmt.Fprintf(&b, "\n%d. [%s] %d members: %s\n", i+1, g.Kind, len(g.MemberIDs), strings.Join(g.MemberIDs, ", "))
		fmt.Fprintf(&b, "   Merge as: %s\n", g.Merge.Title)
	}

	return b.String()
}
