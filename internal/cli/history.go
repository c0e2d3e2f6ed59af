package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/caseval/internal/committee"
	"github.com/shahbajlive/caseval/internal/history"
	"github.com/shahbajlive/caseval/internal/output"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect persisted evaluation runs",
	}
	cmd.AddCommand(newHistoryListCmd(root), newHistoryShowCmd(root))
	return cmd
}

func openStore(root *rootOptions) (*history.Store, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Server.HistoryPath == "" {
		return nil, fmt.Errorf("server.history_path is not configured")
	}
	return history.Open(cfg.Server.HistoryPath)
}

func newHistoryListCmd(root *rootOptions) *cobra.Command {
	var (
		format string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd.OutOrStdout(), root, format, limit)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	return cmd
}

func runHistoryList(w io.Writer, root *rootOptions, formatFlag string, limit int) error {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	store, err := openStore(root)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}
	if format != output.FormatText {
		return output.WriteStructured(w, format, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	color := output.UseColor(w)
	fmt.Fprintln(w, output.Heading(fmt.Sprintf("%-6s %-20s %-8s %-9s %s", "ID", "CREATED", "SCORE", "MODE", "LABEL"), color))
	for _, r := range runs {
		fmt.Fprintf(w, "%-6d %-20s %-8.1f %-9s %s\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.OverallScore, r.Framework, r.Label)
	}
	return nil
}

func newHistoryShowCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			return runHistoryShow(cmd.OutOrStdout(), root, format, id)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml")
	return cmd
}

func runHistoryShow(w io.Writer, root *rootOptions, formatFlag string, id int64) error {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	store, err := openStore(root)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(context.Background(), id)
	if err != nil {
		return err
	}
	if format != output.FormatText {
		return output.WriteStructured(w, format, run)
	}

	fmt.Fprint(w, output.RenderMarkdown(w, runMarkdown(run)))
	return nil
}

// runMarkdown formats a run as markdown for glamour rendering.
func runMarkdown(run history.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %d: %s\n\n", run.ID, run.Label)
	fmt.Fprintf(&b, "- Created: %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- Overall score: **%.1f / 5.0** (%s)\n", run.OverallScore, run.Framework)

	if run.Result != nil {
		b.WriteString("\n## Dimensions\n\n")
		b.WriteString("| Dimension | Score | Reason |\n|---|---|---|\n")
		for _, dim := range committee.AllDimensions() {
			ds, ok := run.Result.Dimensions[dim]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "| %s | %.1f | %s |\n", dim, ds.Score, strings.ReplaceAll(ds.Reason, "|", "/"))
		}
		if run.Result.FinalSuggestion != "" {
			fmt.Fprintf(&b, "\n## Suggestion\n\n%s\n", run.Result.FinalSuggestion)
		}
	}

	if run.Report != nil {
		fmt.Fprintf(&b, "\n## Duplicates\n\n%d groups across %d cases (%.2f%%)\n",
			run.Report.DuplicateCount, run.Report.TotalCases, run.Report.DuplicateRate)
	}
	return b.String()
}
