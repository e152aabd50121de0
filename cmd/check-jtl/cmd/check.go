package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avtr-nvivas/check-jtl/internal/artifact"
	"github.com/avtr-nvivas/check-jtl/internal/gate"
	"github.com/avtr-nvivas/check-jtl/internal/history"
	"github.com/avtr-nvivas/check-jtl/internal/metrics"
)

func init() {
	rootCmd.AddCommand(checkCmd)
	addCheckFlags(checkCmd)
}

func addCheckFlags(cmd *cobra.Command) {
	addSLAFlags(cmd)
	cmd.Flags().String("test-name", "", "test name recorded in the summary (default: results file name)")
	cmd.Flags().Int("threads", 0, "thread count recorded in the summary")
	cmd.Flags().Int("rampup", 0, "ramp-up seconds recorded in the summary")
	cmd.Flags().Int("duration", 0, "configured duration recorded in the summary")
	cmd.Flags().String("repo", "", "repository recorded in the summary")
	cmd.Flags().String("jmx", "", "JMX plan recorded in the summary")
	cmd.Flags().String("out", "summary.json", "summary JSON output path")
}

var checkCmd = &cobra.Command{
	Use:   "check <results.jtl>",
	Short: "Evaluate a results file against the SLA",
	Long: `Evaluate a JMeter JTL results file against the SLA. The file may be
plain or gzip compressed, a local path or an s3:// URL. The exit code is 0
when every rule passes and 1 otherwise.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runCheck(cmd, args[0]))
	},
}

func runCheck(cmd *cobra.Command, source string) int {
	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := buildConfig(cmd)
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return 1
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts := gate.Options{Collector: metrics.NewCollector()}

	if cfg.History.DSN != "" {
		store, err := history.Open(cfg.History.DSN)
		if err == nil {
			err = store.EnsureSchema(ctx)
		}
		if err != nil {
			logger.Warn("history disabled", zap.Error(err))
		} else {
			defer func() { _ = store.Close() }()
			opts.History = store
		}
	}

	if cfg.Artifact.Bucket != "" || artifact.IsURL(source) {
		store, err := artifact.NewStore(ctx, cfg.Artifact, logger)
		switch {
		case err != nil && artifact.IsURL(source):
			logger.Error("artifact store unavailable", zap.Error(err))
			return 1
		case err != nil:
			logger.Warn("artifact publishing disabled", zap.Error(err))
		default:
			opts.Artifacts = store
		}
	}

	result, err := gate.New(cfg, logger, opts).Run(ctx, source)
	if err != nil {
		logger.Error("check failed", zap.Error(err))
		return 1
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Console)

	if result.WriteErr != nil {
		logger.Warn("summary not written", zap.Error(result.WriteErr))
	}
	if !result.Summary.SLAPassed {
		return 1
	}
	return 0
}
