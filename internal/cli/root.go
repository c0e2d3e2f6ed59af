// Package cli implements the caseval command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/caseval/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type rootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "caseval",
		Short: "Test case quality evaluation: duplicate detection and multi-judge scoring",
		Long: `caseval analyzes generated software test cases. It clusters duplicate and
near-duplicate cases with merge suggestions, and scores case quality through a
committee of LLM judges with variance-triggered debate and chairman
arbitration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Config file path (default: ./caseval.toml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newDetectCmd(opts),
		newEvaluateCmd(opts),
		newServeCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the CLI.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	return config.Load(o.ConfigPath)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the caseval version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "caseval", Version)
		},
	}
}
