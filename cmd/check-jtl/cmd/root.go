package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avtr-nvivas/check-jtl/internal/config"
	"github.com/avtr-nvivas/check-jtl/internal/sla"
)

var rootCmd = &cobra.Command{
	Use:   "check-jtl",
	Short: "SLA gate for JMeter load test results",
	Long: `check-jtl aggregates a JMeter JTL results file and evaluates the run
against four SLA rules: no HTTP 5xx responses, error rate, average latency
and throughput. It prints a report, writes summary.json and exits non-zero
when the SLA is not met, so CI pipelines can gate on it directly.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if config.GetEnvOrDefault("LOG_MODE", "") == "development" {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

// addSLAFlags registers the threshold flags shared by check and serve.
func addSLAFlags(cmd *cobra.Command) {
	defaults := sla.DefaultThresholds()
	cmd.Flags().String("sla-config", "", "YAML file overriding SLA thresholds")
	cmd.Flags().Float64("max-error-pct", defaults.MaxErrorRatePct, "maximum acceptable error rate in percent")
	cmd.Flags().Float64("max-avg-ms", defaults.MaxAvgLatencyMs, "maximum acceptable average latency in milliseconds")
	cmd.Flags().Float64("min-tps", defaults.MinTPS, "minimum acceptable throughput in transactions per second")
}

// buildConfig resolves the effective configuration. Flags beat the SLA file,
// the SLA file beats environment variables, and those beat the defaults.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	flags := cmd.Flags()

	slaPath, _ := flags.GetString("sla-config")
	if slaPath == "" {
		slaPath = config.GetEnvOrDefault("SLA_CONFIG", "")
	}
	if slaPath != "" {
		th, err := config.LoadThresholdsFile(slaPath, cfg.Thresholds)
		if err != nil {
			return nil, err
		}
		cfg.Thresholds = th
	}

	if flags.Changed("max-error-pct") {
		cfg.Thresholds.MaxErrorRatePct, _ = flags.GetFloat64("max-error-pct")
	}
	if flags.Changed("max-avg-ms") {
		cfg.Thresholds.MaxAvgLatencyMs, _ = flags.GetFloat64("max-avg-ms")
	}
	if flags.Changed("min-tps") {
		cfg.Thresholds.MinTPS, _ = flags.GetFloat64("min-tps")
	}

	if flags.Changed("test-name") {
		cfg.Run.TestName, _ = flags.GetString("test-name")
	}
	if flags.Changed("threads") {
		cfg.Run.Threads, _ = flags.GetInt("threads")
	}
	if flags.Changed("rampup") {
		cfg.Run.RampUp, _ = flags.GetInt("rampup")
	}
	if flags.Changed("duration") {
		cfg.Run.Duration, _ = flags.GetInt("duration")
	}
	if flags.Changed("repo") {
		cfg.Run.Repo, _ = flags.GetString("repo")
	}
	if flags.Changed("jmx") {
		cfg.Run.JMX, _ = flags.GetString("jmx")
	}
	if flags.Changed("out") {
		cfg.Output.SummaryPath, _ = flags.GetString("out")
	}

	if flags.Changed("listen") {
		cfg.Serve.ListenAddr, _ = flags.GetString("listen")
	}
	if flags.Changed("watch-dir") {
		cfg.Serve.WatchDir, _ = flags.GetString("watch-dir")
	}
	if flags.Changed("settle") {
		cfg.Serve.SettleDelay, _ = flags.GetDuration("settle")
	}

	return cfg, nil
}
