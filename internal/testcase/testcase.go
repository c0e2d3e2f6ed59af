// Package testcase defines the normalized in-memory representation of a
// software test case set. Collections are loaded once, treated as immutable,
// and shared read-only with the analysis engines.
package testcase

import (
	"strings"
)

// UncategorizedLabel is assigned to cases whose category cannot be inferred.
const UncategorizedLabel = "uncategorized"

// TestCase is one normalized test case. Fields that are missing or malformed
// in the source data are loaded as empty values, never as errors.
type TestCase struct {
	// ID is unique within a collection.
	ID string `json:"id" yaml:"id"`

	// Title is the human-readable case title.
	Title string `json:"title" yaml:"title"`

	// Preconditions describes required setup before the steps run.
	Preconditions string `json:"preconditions,omitempty" yaml:"preconditions,omitempty"`

	// Steps are the ordered actions of the case.
	Steps []string `json:"steps,omitempty" yaml:"steps,omitempty"`

	// ExpectedResults are the ordered expected outcomes.
	ExpectedResults []string `json:"expected_results,omitempty" yaml:"expected_results,omitempty"`

	// Category is the explicit category, if the source provided one.
	// ResolvedCategory falls back to title inference.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// ResolvedCategory returns the explicit category when present, otherwise a
// category inferred from the title prefix. Titles like "Login - success" or
// "登录：成功" yield "Login" / "登录"; everything else is uncategorized.
func (tc TestCase) ResolvedCategory() string {
	if tc.Category != "" {
		return tc.Category
	}
	title := tc.Title
	if idx := strings.Index(title, " - "); idx >= 0 {
		if cat := strings.TrimSpace(title[:idx]); cat != "" {
			return cat
		}
		return UncategorizedLabel
	}
	if idx := strings.IndexAny(title, ":："); idx >= 0 {
		if cat := strings.TrimSpace(title[:idx]); cat != "" {
			return cat
		}
	}
	return UncategorizedLabel
}

// StepsText joins the steps into one newline-separated string.
func (tc TestCase) StepsText() string {
	return strings.Join(tc.Steps, "\n")
}

// ExpectedText joins the expected results into one newline-separated string.
func (tc TestCase) ExpectedText() string {
	return strings.Join(tc.ExpectedResults, "\n")
}

// Collection is an ordered sequence of test cases owned by the caller and
// read-only to the engines.
type Collection struct {
	Cases []TestCase `json:"test_cases" yaml:"test_cases"`
}

// NewCollection wraps a case slice without copying.
func NewCollection(cases []TestCase) Collection {
	return Collection{Cases: cases}
}

// Len returns the number of cases.
func (c Collection) Len() int {
	return len(c.Cases)
}

// CategoryGroup is the cases of one resolved category, in collection order.
type CategoryGroup struct {
	Name  string
	Cases []TestCase
}

// Categories groups cases by resolved category, preserving the insertion
// order of first sight so grouped reports are reproducible.
func (c Collection) Categories() []CategoryGroup {
	index := make(map[string]int, len(c.Cases))
	var groups []CategoryGroup
	for _, tc := range c.Cases {
		cat := tc.ResolvedCategory()
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, CategoryGroup{Name: cat})
		}
		groups[i].Cases = append(groups[i].Cases, tc)
	}
	return groups
}
