// Package report builds the run artifacts: the summary document written for
// downstream tooling and the console report written for humans.
package report

import (
	"math"
	"time"

	"github.com/avtr-nvivas/check-jtl/internal/analysis"
	"github.com/avtr-nvivas/check-jtl/internal/sla"
)

// RunInfo carries the pipeline context recorded alongside the metrics.
// Values usually arrive from CI environment variables.
type RunInfo struct {
	TestName string
	Threads  int
	RampUp   int
	Duration int
	Repo     string
	JMX      string
}

// Summary is the machine-readable record of one gate run. Field order is
// part of the contract; downstream jobs diff these documents.
type Summary struct {
	TestName  string `json:"test_name"`
	Timestamp string `json:"timestamp"`

	Threads  int `json:"threads"`
	RampUp   int `json:"rampup"`
	Duration int `json:"duration"`

	Repo string `json:"repo"`
	JMX  string `json:"jmx"`

	SamplesTotal int64   `json:"samples_total"`
	SamplesOK    int64   `json:"samples_ok"`
	SamplesKO    int64   `json:"samples_ko"`
	HTTP500      int64   `json:"http_500"`
	ErrorPct     float64 `json:"error_pct"`

	TPS     float64 `json:"tps"`
	AvgRTMs float64 `json:"avg_rt_ms"`
	P90RTMs float64 `json:"p90_rt_ms"`
	P95RTMs float64 `json:"p95_rt_ms"`

	SLAMinTPS          float64 `json:"sla_min_tps"`
	SLAMaxErrorPct     float64 `json:"sla_max_error_pct"`
	SLAMaxAvgLatencyMs float64 `json:"sla_max_avg_latency_ms"`

	SLAPassed  bool     `json:"sla_passed"`
	SLAReasons []string `json:"sla_reasons"`
}

// Build assembles the summary for a finished run. Metric values are rounded
// to two decimals here, at the reporting boundary; the evaluation itself ran
// on full precision.
func Build(info RunInfo, m *analysis.Metrics, v *sla.Verdict, th sla.Thresholds) *Summary {
	return &Summary{
		TestName:  info.TestName,
		Timestamp: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),

		Threads:  info.Threads,
		RampUp:   info.RampUp,
		Duration: info.Duration,

		Repo: info.Repo,
		JMX:  info.JMX,

		SamplesTotal: m.TotalSamples,
		SamplesOK:    m.SamplesOK,
		SamplesKO:    m.SamplesKO,
		HTTP500:      m.HTTP5xx,
		ErrorPct:     round2(m.ErrorRatePct),

		TPS:     round2(m.TPS),
		AvgRTMs: round2(m.AvgLatencyMs),
		P90RTMs: round2(m.P90LatencyMs),
		P95RTMs: round2(m.P95LatencyMs),

		SLAMinTPS:          th.MinTPS,
		SLAMaxErrorPct:     th.MaxErrorRatePct,
		SLAMaxAvgLatencyMs: th.MaxAvgLatencyMs,

		SLAPassed:  v.Passed,
		SLAReasons: v.Reasons(),
	}
}

// round2 rounds to two decimals with ties to even, matching the values the
// established reporting pipeline emits (7.125 reports as 7.12).
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
