package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avtr-nvivas/check-jtl/internal/artifact"
	"github.com/avtr-nvivas/check-jtl/internal/gate"
	"github.com/avtr-nvivas/check-jtl/internal/history"
	"github.com/avtr-nvivas/check-jtl/internal/metrics"
	"github.com/avtr-nvivas/check-jtl/internal/server"
	"github.com/avtr-nvivas/check-jtl/internal/watcher"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	addSLAFlags(cmd)
	cmd.Flags().String("out", "summary.json", "summary JSON output path")
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().String("watch-dir", "results", "directory watched for results files")
	cmd.Flags().Duration("settle", 2*time.Second, "quiet period before a results file is evaluated")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch a results directory and serve verdicts over HTTP",
	Long: `Watch a directory for finished JTL results files, evaluate each one
against the SLA and serve the latest verdict, the run history and Prometheus
metrics over HTTP.`,
	Run: func(cmd *cobra.Command, _ []string) {
		os.Exit(runServe(cmd))
	},
}

func runServe(cmd *cobra.Command) int {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := buildConfig(cmd)
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return 1
	}

	if err := os.MkdirAll(cfg.Serve.WatchDir, 0o750); err != nil {
		logger.Error("failed to create watch directory", zap.Error(err))
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.NewCollector()
	gateOpts := gate.Options{Collector: collector}
	serverOpts := server.Options{Metrics: collector.Handler()}

	if cfg.History.DSN != "" {
		store, err := history.Open(cfg.History.DSN)
		if err == nil {
			err = store.EnsureSchema(ctx)
		}
		if err != nil {
			logger.Warn("history disabled", zap.Error(err))
		} else {
			defer func() { _ = store.Close() }()
			gateOpts.History = store
			serverOpts.History = store
		}
	}

	if cfg.Artifact.Bucket != "" {
		store, err := artifact.NewStore(ctx, cfg.Artifact, logger)
		if err != nil {
			logger.Warn("artifact publishing disabled", zap.Error(err))
		} else {
			gateOpts.Artifacts = store
		}
	}

	g := gate.New(cfg, logger, gateOpts)
	srv := server.New(cfg, logger, serverOpts)

	w := watcher.New(cfg.Serve.WatchDir, cfg.Serve.SettleDelay, g, logger)
	w.OnResult(func(r *gate.Result) { srv.SetLatest(r.Summary) })

	go func() {
		if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("watcher stopped", zap.Error(err))
		}
	}()

	// Handle shutdown gracefully
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}
