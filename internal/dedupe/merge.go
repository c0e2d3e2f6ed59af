package dedupe

import (
	"strings"

	"github.com/shahbajlive/caseval/internal/testcase"
)

// newGroup assembles a DuplicateGroup, members given as collection indexes
// in collection order.
func newGroup(kind GroupKind, cases []testcase.TestCase, members []int) DuplicateGroup {
	group := DuplicateGroup{Kind: kind}
	selected := make([]testcase.TestCase, 0, len(members))
	for _, idx := range members {
		tc := cases[idx]
		selected = append(selected, tc)
		group.MemberIDs = append(group.MemberIDs, tc.ID)
		group.Titles = append(group.Titles, tc.Title)
	}
	group.Merge = synthesizeMerge(kind, selected)
	return group
}

// synthesizeMerge builds the suggested replacement case for a group:
// the longest member title (first occurrence winning ties), the first
// member's preconditions, and order-stable unions of steps and expected
// results.
func synthesizeMerge(kind GroupKind, members []testcase.TestCase) MergeSuggestion {
	merge := MergeSuggestion{
		Title:         longestTitle(members),
		Preconditions: members[0].Preconditions,
	}

	prefix := "MERGED-"
	if kind == KindStepsNearMatch {
		prefix = "MERGED-STEPS-"
	}
	merge.ID = prefix + members[0].ID

	for _, tc := range members {
		merge.SourceIDs = append(merge.SourceIDs, tc.ID)
		merge.Steps = appendUnique(merge.Steps, tc.Steps)
		merge.ExpectedResults = appendUnique(merge.ExpectedResults, tc.ExpectedResults)
	}
	return merge
}

func longestTitle(members []testcase.TestCase) string {
	best := ""
	for _, tc := range members {
		if len(tc.Title) > len(best) {
			best = tc.Title
		}
	}
	return best
}

// appendUnique appends trimmed non-empty entries not already present,
// preserving first-occurrence order.
func appendUnique(dst []string, entries []string) []string {
	for _, e := range entries {
		t := strings.TrimSpace(e)
		if t == "" {
			continue
		}
		duplicate := false
		for _, existing := range dst {
			if existing == t {
				duplicate = true
				break
			}
		}
		if !duplicate {
			dst = append(dst, t)
		}
	}
	return dst
}
