package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/caseval/internal/committee"
	"github.com/shahbajlive/caseval/internal/dedupe"
	"github.com/shahbajlive/caseval/internal/history"
	"github.com/shahbajlive/caseval/internal/judge"
	"github.com/shahbajlive/caseval/internal/output"
	"github.com/shahbajlive/caseval/internal/testcase"
)

type evaluateOptions struct {
	Format     string
	GoldenPath string
	Iteration  bool
	NoDetect   bool
	DryRun     bool
	Save       bool
	Label      string
}

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	opts := evaluateOptions{Format: "text"}

	cmd := &cobra.Command{
		Use:   "evaluate <cases-file>",
		Short: "Score test case quality through the judge committee",
		Long: `Evaluate sends the test cases to every configured judge for independent
scoring, re-deliberates dimensions where the judges disagree, and produces a
final arbitrated score with per-dimension detail.

The duplicate analysis runs first and its digest is shown to the judges as
additional evidence; --no-detect skips it. --iteration disables the debate
round for faster feedback loops.`,
		Example: `  caseval evaluate cases.json
  caseval evaluate cases.json --golden golden.json --format=json
  caseval evaluate cases.json --iteration --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.OutOrStdout(), root, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format: text, json, yaml")
	cmd.Flags().StringVar(&opts.GoldenPath, "golden", "", "Reference (golden) cases file")
	cmd.Flags().BoolVar(&opts.Iteration, "iteration", false, "Skip the debate round")
	cmd.Flags().BoolVar(&opts.NoDetect, "no-detect", false, "Skip duplicate analysis")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Use scripted judges instead of the model endpoint")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "Persist the run to history")
	cmd.Flags().StringVar(&opts.Label, "label", "", "Run label for history (default: the input file name)")
	return cmd
}

func runEvaluate(w io.Writer, root *rootOptions, path string, opts evaluateOptions) error {
	format, err := output.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if opts.Iteration {
		cfg.Committee.IterationMode = true
	}

	collection, err := testcase.LoadFile(path)
	if err != nil {
		return err
	}
	if collection.Len() == 0 {
		return fmt.Errorf("%s contains no test cases", path)
	}

	input := committee.Input{AICases: collection.Render()}
	if opts.GoldenPath != "" {
		golden, err := testcase.LoadFile(opts.GoldenPath)
		if err != nil {
			return err
		}
		input.GoldenCases = golden.Render()
	}

	var report *dedupe.DuplicateReport
	if !opts.NoDetect {
		report = dedupe.Detect(collection, cfg.Dedupe)
		input.DuplicateSummary = report.Summary("Submitted cases")
	}

	panel := cfg.Panel
	var client committee.JudgeClient
	switch {
	case opts.DryRun:
		client = judge.NewScriptedClient(3.0)
		if len(panel.Judges) == 0 {
			panel.Judges = []committee.JudgeProfile{{ID: "scripted-a"}, {ID: "scripted-b"}}
		}
	case len(panel.Judges) == 0:
		return fmt.Errorf("no judge panel configured; add [[panel.judges]] to %s or use --dry-run", configName(root))
	default:
		httpClient, err := judge.NewHTTPClient(cfg.Judge)
		if err != nil {
			return err
		}
		client = httpClient
		if cfg.CacheTTLSeconds > 0 {
			client = judge.NewCachedClient(client, time.Duration(cfg.CacheTTLSeconds)*time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := committee.Evaluate(ctx, cfg.Committee, panel, client, input)
	if err != nil {
		return err
	}

	if opts.Save {
		if err := saveRun(ctx, cfg.Server.HistoryPath, opts.Label, path, result, report); err != nil {
			slog.Warn("failed to persist run", "error", err)
		}
	}

	return writeEvaluation(w, format, result, report)
}

func configName(root *rootOptions) string {
	if root.ConfigPath != "" {
		return root.ConfigPath
	}
	return "caseval.toml"
}

func saveRun(ctx context.Context, historyPath, label, inputPath string, result *committee.EvaluationResult, report *dedupe.DuplicateReport) error {
	if historyPath == "" {
		return fmt.Errorf("server.history_path is not configured")
	}
	store, err := history.Open(historyPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if label == "" {
		label = inputPath
	}
	id, err := store.SaveRun(ctx, history.Run{Label: label, Result: result, Report: report})
	if err != nil {
		return err
	}
	slog.Info("run saved", "id", id, "label", label)
	return nil
}

// evaluationOutput is the JSON/YAML output structure.
type evaluationOutput struct {
	Result *committee.EvaluationResult `json:"result" yaml:"result"`
	Report *dedupe.DuplicateReport     `json:"duplicate_report,omitempty" yaml:"duplicate_report,omitempty"`
}

func writeEvaluation(w io.Writer, format output.Format, result *committee.EvaluationResult, report *dedupe.DuplicateReport) error {
	if format != output.FormatText {
		return output.WriteStructured(w, format, evaluationOutput{Result: result, Report: report})
	}

	color := output.UseColor(w)
	fmt.Fprintln(w, output.Heading("Evaluation Result", color))
	fmt.Fprint(w, result.Render())
	if len(result.HighDisagreementDimensions) > 0 {
		warning := output.Wrap("Judges remained split on the dimensions listed above; treat those scores with care.", 80)
		fmt.Fprintln(w, output.Warn(warning, color))
	}
	if report != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, output.Heading("Duplicate Analysis", color))
		fmt.Fprint(w, report.Render())
	}
	return nil
}
