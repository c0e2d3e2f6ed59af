package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shahbajlive/caseval/internal/committee"
	"github.com/shahbajlive/caseval/internal/history"
	"github.com/shahbajlive/caseval/internal/judge"
	"github.com/shahbajlive/caseval/internal/serve"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the evaluation REST API",
		Long: `Serve hosts the HTTP API: synchronous duplicate detection, asynchronous
committee evaluation with task polling, run history, and a websocket event
feed at /api/v1/events.`,
		Example: `  caseval serve
  caseval serve --addr :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(root, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address override (default from config)")
	return cmd
}

func runServe(root *rootOptions, addr string) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	var client committee.JudgeClient
	if len(cfg.Panel.Judges) > 0 {
		httpClient, err := judge.NewHTTPClient(cfg.Judge)
		if err != nil {
			return err
		}
		client = httpClient
		if cfg.CacheTTLSeconds > 0 {
			client = judge.NewCachedClient(client, time.Duration(cfg.CacheTTLSeconds)*time.Second)
		}
	} else {
		slog.Warn("no judge panel configured, evaluation endpoints disabled")
	}

	var store *history.Store
	if cfg.Server.HistoryPath != "" {
		store, err = history.Open(cfg.Server.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve.New(cfg, client, store).Run(ctx)
}
