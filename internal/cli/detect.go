package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/shahbajlive/caseval/internal/dedupe"
	"github.com/shahbajlive/caseval/internal/output"
	"github.com/shahbajlive/caseval/internal/testcase"
)

type detectOptions struct {
	Format    string
	Threshold float64
	Watch     bool
}

func newDetectCmd(root *rootOptions) *cobra.Command {
	opts := detectOptions{Format: "text"}

	cmd := &cobra.Command{
		Use:   "detect <cases-file>",
		Short: "Detect duplicate and near-duplicate test cases",
		Long: `Detect clusters test cases that share an exact title or whose step text is
similar beyond the configured threshold, closing near-matches transitively.
Each cluster comes with a synthesized merge suggestion.

Formats:
  --format=text (default) - Human-readable report
  --format=json           - Machine-readable JSON
  --format=yaml           - YAML format`,
		Example: `  caseval detect cases.json
  caseval detect cases.yaml --threshold 0.9 --format=json
  caseval detect cases.json --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd.OutOrStdout(), root, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format: text, json, yaml")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "Similarity threshold override (0 uses config)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run detection whenever the file changes")
	return cmd
}

func runDetect(w io.Writer, root *rootOptions, path string, opts detectOptions) error {
	format, err := output.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if opts.Threshold > 0 {
		cfg.Dedupe.SimilarityThreshold = opts.Threshold
	}
	if err := cfg.Dedupe.Validate(); err != nil {
		return err
	}

	engine := dedupe.NewEngine(cfg.Dedupe)
	defer engine.Close()

	detectOnce := func() error {
		collection, err := testcase.LoadFile(path)
		if err != nil {
			return err
		}
		report := engine.Detect(collection)
		return writeDetectReport(w, format, report)
	}

	if err := detectOnce(); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}
	return watchFile(path, detectOnce)
}

func writeDetectReport(w io.Writer, format output.Format, report *dedupe.DuplicateReport) error {
	if format != output.FormatText {
		return output.WriteStructured(w, format, report)
	}
	fmt.Fprint(w, report.Render())
	return nil
}

// watchFile re-runs fn on every write to path until interrupted.
func watchFile(path string, fn func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops a
	// watch registered on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	slog.Info("watching for changes", "path", path)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := fn(); err != nil {
				slog.Error("re-run failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		case <-sig:
			return nil
		}
	}
}
