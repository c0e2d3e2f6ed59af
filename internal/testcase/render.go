package testcase

import (
	"fmt"
	"strings"
)

// Render formats the collection as markdown for judge prompts and terminal
// display.
func (c Collection) Render() string {
	var b strings.Builder
	for i, tc := range c.Cases {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### %s: %s\n", tc.ID, tc.Title)
		if tc.Category != "" {
			fmt.Fprintf(&b, "Category: %s\n", tc.Category)
		}
		if tc.Preconditions != "" {
			fmt.Fprintf(&b, "Preconditions: %s\n", tc.Preconditions)
		}
		if len(tc.Steps) > 0 {
			b.WriteString("Steps:\n")
			for n, step := range tc.Steps {
				fmt.Fprintf(&b, "%d. %s\n", n+1, step)
			}
		}
		if len(tc.ExpectedResults) > 0 {
			b.WriteString("Expected:\n")
			for _, exp := range tc.ExpectedResults {
				fmt.Fprintf(&b, "- %s\n", exp)
			}
		}
	}
	return b.String()
}
