// Package output renders command results for the terminal: format selection
// (text, json, yaml), TTY-aware styling, and markdown rendering for reports.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/reflow/wordwrap"
	"gopkg.in/yaml.v3"
)

// Format is an output format name.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat normalizes a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json, or yaml)", s)
	}
}

// WriteStructured emits v as JSON or YAML.
func WriteStructured(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("structured output requires json or yaml, got %q", format)
	}
}

// UseColor reports whether styled output should be used for w.
func UseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	scoreStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Heading styles a section heading when color is enabled.
func Heading(s string, color bool) string {
	if !color {
		return s
	}
	return headingStyle.Render(s)
}

// Score styles a headline score.
func Score(s string, color bool) string {
	if !color {
		return s
	}
	return scoreStyle.Render(s)
}

// Warn styles a warning line.
func Warn(s string, color bool) string {
	if !color {
		return s
	}
	return warnStyle.Render(s)
}

// Wrap soft-wraps text to the given width, leaving it untouched when width
// is not positive.
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wordwrap.String(s, width)
}

// RenderMarkdown renders markdown for the terminal. Without a TTY it returns
// the source unchanged.
func RenderMarkdown(w io.Writer, markdown string) string {
	if !UseColor(w) {
		return markdown
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
