// Package config assembles the gate configuration from defaults, the
// optional SLA overrides file, environment variables, and flags.
package config

import (
	"time"

	"github.com/avtr-nvivas/check-jtl/internal/sla"
)

type Config struct {
	Run        RunConfig
	Thresholds sla.Thresholds
	Output     OutputConfig
	History    HistoryConfig
	Artifact   ArtifactConfig
	Metrics    MetricsConfig
	Serve      ServeConfig
}

// RunConfig is the pipeline context recorded in the summary. CI jobs set
// these through environment variables.
type RunConfig struct {
	TestName string
	Threads  int
	RampUp   int
	Duration int
	Repo     string
	JMX      string
}

type OutputConfig struct {
	SummaryPath string
}

// HistoryConfig enables the Postgres run archive when DSN is set.
type HistoryConfig struct {
	DSN string
}

// ArtifactConfig enables S3 fetch of results and publish of summaries.
// Bucket empty disables publishing; s3:// inputs are still fetched.
type ArtifactConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// MetricsConfig enables Pushgateway publication for one-shot runs.
type MetricsConfig struct {
	PushgatewayURL string
	JobName        string
}

type ServeConfig struct {
	ListenAddr  string
	WatchDir    string
	SettleDelay time.Duration
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Thresholds: sla.DefaultThresholds(),
		Output:     OutputConfig{SummaryPath: "summary.json"},
		Artifact:   ArtifactConfig{Region: "us-east-1"},
		Metrics:    MetricsConfig{JobName: "check-jtl"},
		Serve: ServeConfig{
			ListenAddr:  ":8080",
			WatchDir:    "results",
			SettleDelay: 2 * time.Second,
		},
	}
}

// LoadFromEnv overlays environment variables onto cfg.
func LoadFromEnv(cfg *Config) {
	if name := GetEnvOrDefault("TEST_NAME", ""); name != "" {
		cfg.Run.TestName = name
	}
	cfg.Run.Threads = GetEnvInt("THREADS", cfg.Run.Threads)
	cfg.Run.RampUp = GetEnvInt("RAMP_UP", cfg.Run.RampUp)
	cfg.Run.Duration = GetEnvInt("DURATION", cfg.Run.Duration)
	cfg.Run.Repo = GetEnvOrDefault("REPO", cfg.Run.Repo)
	cfg.Run.JMX = GetEnvOrDefault("JMX", cfg.Run.JMX)

	cfg.Thresholds.MaxErrorRatePct = GetEnvFloat("SLA_MAX_ERROR_PCT", cfg.Thresholds.MaxErrorRatePct)
	cfg.Thresholds.MaxAvgLatencyMs = GetEnvFloat("SLA_MAX_AVG_MS", cfg.Thresholds.MaxAvgLatencyMs)
	cfg.Thresholds.MinTPS = GetEnvFloat("SLA_MIN_TPS", cfg.Thresholds.MinTPS)

	cfg.Output.SummaryPath = GetEnvOrDefault("SUMMARY_OUT", cfg.Output.SummaryPath)

	cfg.History.DSN = GetEnvOrDefault("HISTORY_DSN", cfg.History.DSN)

	cfg.Artifact.Endpoint = GetEnvOrDefault("S3_ENDPOINT", cfg.Artifact.Endpoint)
	cfg.Artifact.Region = GetEnvOrDefault("S3_REGION", cfg.Artifact.Region)
	cfg.Artifact.AccessKey = GetEnvOrDefault("S3_ACCESS_KEY", cfg.Artifact.AccessKey)
	cfg.Artifact.SecretKey = GetEnvOrDefault("S3_SECRET_KEY", cfg.Artifact.SecretKey)
	cfg.Artifact.Bucket = GetEnvOrDefault("S3_BUCKET", cfg.Artifact.Bucket)
	cfg.Artifact.Prefix = GetEnvOrDefault("S3_PREFIX", cfg.Artifact.Prefix)

	cfg.Metrics.PushgatewayURL = GetEnvOrDefault("PUSHGATEWAY_URL", cfg.Metrics.PushgatewayURL)
	cfg.Metrics.JobName = GetEnvOrDefault("PUSHGATEWAY_JOB", cfg.Metrics.JobName)

	cfg.Serve.ListenAddr = GetEnvOrDefault("LISTEN_ADDR", cfg.Serve.ListenAddr)
	cfg.Serve.WatchDir = GetEnvOrDefault("WATCH_DIR", cfg.Serve.WatchDir)
	cfg.Serve.SettleDelay = GetEnvDuration("SETTLE_DELAY", cfg.Serve.SettleDelay)
}
