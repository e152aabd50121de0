// Package gate runs the full evaluation pipeline for one results file:
// resolve the source, aggregate samples, evaluate the SLA, and emit the
// report artifacts.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avtr-nvivas/check-jtl/internal/analysis"
	"github.com/avtr-nvivas/check-jtl/internal/artifact"
	"github.com/avtr-nvivas/check-jtl/internal/config"
	"github.com/avtr-nvivas/check-jtl/internal/jtl"
	"github.com/avtr-nvivas/check-jtl/internal/metrics"
	"github.com/avtr-nvivas/check-jtl/internal/report"
	"github.com/avtr-nvivas/check-jtl/internal/sla"
)

// HistoryStore archives evaluated runs.
type HistoryStore interface {
	SaveRun(ctx context.Context, runID string, s *report.Summary) error
}

// ArtifactStore resolves s3:// inputs and publishes summaries.
type ArtifactStore interface {
	Fetch(ctx context.Context, rawURL string) (string, func(), error)
	SummaryKey(testName, runID string) string
	PublishSummary(ctx context.Context, key string, data []byte) error
}

// Options carries the optional pipeline stages. Nil stages are skipped.
type Options struct {
	History   HistoryStore
	Artifacts ArtifactStore
	Collector *metrics.Collector
}

// Gate evaluates results files against the configured SLA.
type Gate struct {
	cfg       *config.Config
	logger    *zap.Logger
	history   HistoryStore
	artifacts ArtifactStore
	collector *metrics.Collector
}

// Result is the typed outcome of one gate run. WriteErr reports a failed
// summary write; it never flips a passing verdict.
type Result struct {
	RunID    string
	Summary  *report.Summary
	Metrics  *analysis.Metrics
	Verdict  *sla.Verdict
	Console  string
	WriteErr error
}

// New creates a gate with the given optional stages.
func New(cfg *config.Config, logger *zap.Logger, opts Options) *Gate {
	return &Gate{
		cfg:       cfg,
		logger:    logger,
		history:   opts.History,
		artifacts: opts.Artifacts,
		collector: opts.Collector,
	}
}

// Run evaluates one results source, local path or s3:// URL. A returned
// error means no verdict was produced: missing source, no samples, or an
// unreadable file. Failures in the optional stages are logged and do not
// abort the run.
func (g *Gate) Run(ctx context.Context, source string) (*Result, error) {
	runID := uuid.New().String()
	logger := g.logger.With(zap.String("run_id", runID), zap.String("source", source))
	logger.Info("starting gate run")

	local := source
	if artifact.IsURL(source) {
		if g.artifacts == nil {
			return nil, fmt.Errorf("s3 source %s: artifact store not configured", source)
		}
		fetched, cleanup, err := g.artifacts.Fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		local = fetched
	}

	agg := analysis.NewAggregator()
	err := jtl.ScanFile(local, func(s jtl.Sample) error {
		agg.Add(s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m, err := agg.Finalize()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	verdict := sla.Evaluate(m, g.cfg.Thresholds)
	summary := report.Build(g.runInfo(source), m, verdict, g.cfg.Thresholds)

	result := &Result{
		RunID:   runID,
		Summary: summary,
		Metrics: m,
		Verdict: verdict,
		Console: report.RenderConsole(summary, m, verdict),
	}

	if err := report.WriteFile(g.cfg.Output.SummaryPath, summary); err != nil {
		logger.Error("summary write failed", zap.Error(err))
		result.WriteErr = err
	}

	if g.collector != nil {
		g.collector.Record(m, verdict)
		if g.cfg.Metrics.PushgatewayURL != "" {
			if err := g.collector.Push(ctx, g.cfg.Metrics.PushgatewayURL, g.cfg.Metrics.JobName); err != nil {
				logger.Warn("metrics push failed", zap.Error(err))
			}
		}
	}

	if g.history != nil {
		if err := g.history.SaveRun(ctx, runID, summary); err != nil {
			logger.Warn("history archive failed", zap.Error(err))
		}
	}

	if g.artifacts != nil && g.cfg.Artifact.Bucket != "" {
		g.publish(ctx, logger, runID, summary)
	}

	logger.Info("gate run complete",
		zap.Bool("sla_passed", verdict.Passed),
		zap.Int64("samples", m.TotalSamples),
		zap.Float64("error_pct", m.ErrorRatePct),
		zap.Float64("tps", m.TPS))
	return result, nil
}

func (g *Gate) publish(ctx context.Context, logger *zap.Logger, runID string, summary *report.Summary) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Warn("summary encode for publish failed", zap.Error(err))
		return
	}
	key := g.artifacts.SummaryKey(summary.TestName, runID)
	if err := g.artifacts.PublishSummary(ctx, key, data); err != nil {
		logger.Warn("summary publish failed", zap.Error(err))
	}
}

// runInfo resolves the run context, defaulting the test name to the source
// file's base name.
func (g *Gate) runInfo(source string) report.RunInfo {
	info := report.RunInfo{
		TestName: g.cfg.Run.TestName,
		Threads:  g.cfg.Run.Threads,
		RampUp:   g.cfg.Run.RampUp,
		Duration: g.cfg.Run.Duration,
		Repo:     g.cfg.Run.Repo,
		JMX:      g.cfg.Run.JMX,
	}
	if info.TestName == "" {
		if artifact.IsURL(source) {
			info.TestName = path.Base(source)
		} else {
			info.TestName = filepath.Base(source)
		}
	}
	return info
}
