package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avtr-nvivas/check-jtl/internal/analysis"
	"github.com/avtr-nvivas/check-jtl/internal/sla"
)

func passingMetrics() *analysis.Metrics {
	return &analysis.Metrics{
		TotalSamples:    4,
		SamplesOK:       4,
		SamplesKO:       0,
		HTTP5xx:         0,
		ErrorRatePct:    0,
		AvgLatencyMs:    175,
		DurationSeconds: 0.7,
		TPS:             4.0 / 0.7,
		P90LatencyMs:    300,
		P95LatencyMs:    300,
		Labels: []analysis.LabelStat{
			{Label: "Login", Samples: 2},
			{Label: "Checkout", Samples: 1},
			{Label: "Search", Samples: 1},
		},
	}
}

func testRunInfo() RunInfo {
	return RunInfo{
		TestName: "smoke-checkout",
		Threads:  10,
		RampUp:   30,
		Duration: 300,
		Repo:     "git@example.com:demo/shop.git",
		JMX:      "plans/checkout.jmx",
	}
}

func TestBuild(t *testing.T) {
	m := passingMetrics()
	th := sla.DefaultThresholds()
	v := sla.Evaluate(m, th)
	s := Build(testRunInfo(), m, v, th)

	t.Run("copies run info", func(t *testing.T) {
		assert.Equal(t, "smoke-checkout", s.TestName)
		assert.Equal(t, 10, s.Threads)
		assert.Equal(t, 30, s.RampUp)
		assert.Equal(t, 300, s.Duration)
		assert.Equal(t, "git@example.com:demo/shop.git", s.Repo)
		assert.Equal(t, "plans/checkout.jmx", s.JMX)
	})

	t.Run("rounds metrics to two decimals", func(t *testing.T) {
		assert.Equal(t, 5.71, s.TPS)
		assert.Equal(t, 175.0, s.AvgRTMs)
		assert.Equal(t, 0.0, s.ErrorPct)
		assert.Equal(t, 300.0, s.P90RTMs)
		assert.Equal(t, 300.0, s.P95RTMs)
	})

	t.Run("copies counters unrounded", func(t *testing.T) {
		assert.Equal(t, int64(4), s.SamplesTotal)
		assert.Equal(t, int64(4), s.SamplesOK)
		assert.Equal(t, int64(0), s.SamplesKO)
		assert.Equal(t, int64(0), s.HTTP500)
	})

	t.Run("records thresholds", func(t *testing.T) {
		assert.Equal(t, 5.0, s.SLAMinTPS)
		assert.Equal(t, 1.0, s.SLAMaxErrorPct)
		assert.Equal(t, 3000.0, s.SLAMaxAvgLatencyMs)
	})

	t.Run("records verdict", func(t *testing.T) {
		assert.True(t, s.SLAPassed)
		require.Len(t, s.SLAReasons, 4)
		assert.Equal(t, "no HTTP 5xx responses (0 observed)", s.SLAReasons[0])
	})

	t.Run("timestamp is UTC at second precision", func(t *testing.T) {
		parsed, err := time.Parse(time.RFC3339, s.Timestamp)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(s.Timestamp, "Z"))
		assert.Equal(t, 0, parsed.Nanosecond())
		assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
	})
}

func TestBuild_RoundsTiesToEven(t *testing.T) {
	m := passingMetrics()
	m.AvgLatencyMs = 3456.789
	m.TPS = 7.125
	m.P90LatencyMs = 7.375
	th := sla.DefaultThresholds()
	s := Build(testRunInfo(), m, sla.Evaluate(m, th), th)

	assert.Equal(t, 3456.79, s.AvgRTMs)
	// Exact binary ties land on the even hundredth.
	assert.Equal(t, 7.12, s.TPS)
	assert.Equal(t, 7.38, s.P90RTMs)
}

func TestSummary_FieldOrder(t *testing.T) {
	m := passingMetrics()
	th := sla.DefaultThresholds()
	s := Build(testRunInfo(), m, sla.Evaluate(m, th), th)

	data, err := json.MarshalIndent(s, "", "  ")
	require.NoError(t, err)
	doc := string(data)

	ordered := []string{
		`"test_name"`, `"timestamp"`, `"threads"`, `"rampup"`, `"duration"`,
		`"repo"`, `"jmx"`,
		`"samples_total"`, `"samples_ok"`, `"samples_ko"`, `"http_500"`, `"error_pct"`,
		`"tps"`, `"avg_rt_ms"`, `"p90_rt_ms"`, `"p95_rt_ms"`,
		`"sla_min_tps"`, `"sla_max_error_pct"`, `"sla_max_avg_latency_ms"`,
		`"sla_passed"`, `"sla_reasons"`,
	}

	prev := -1
	for _, key := range ordered {
		idx := strings.Index(doc, key)
		require.GreaterOrEqual(t, idx, 0, "missing key %s", key)
		assert.Greater(t, idx, prev, "key %s out of order", key)
		prev = idx
	}
}
