// Package metrics exposes gate results to Prometheus, either scraped in
// serve mode or pushed to a Pushgateway after a one-shot run.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/avtr-nvivas/check-jtl/internal/analysis"
	"github.com/avtr-nvivas/check-jtl/internal/sla"
)

// Collector holds all Prometheus metrics for the gate. A private registry
// keeps the surface limited to gate metrics.
type Collector struct {
	registry *prometheus.Registry

	lastSamples   prometheus.Gauge
	lastErrorPct  prometheus.Gauge
	lastTPS       prometheus.Gauge
	lastAvgMs     prometheus.Gauge
	lastP90Ms     prometheus.Gauge
	lastP95Ms     prometheus.Gauge
	lastHTTP5xx   prometheus.Gauge
	lastSLAPassed prometheus.Gauge
	evaluations   *prometheus.CounterVec
}

// NewCollector creates and registers all gate metrics.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		lastSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checkjtl_last_run_samples_total",
			Help: "Sample count of the most recent evaluated run",
		}),
		lastErrorPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checkjtl_last_run_error_pct",
			Help: "Error percentage of the most recent evaluated run",
		}),
		lastTPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checkjtl_last_run_tps",
			Help: "Throughput of the most recent evaluated run",
		}),
		lastAvgMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checkjtl_last_run_avg_latency_ms",
			Help: "Average latency of the most recent evaluated run",
		}),
		lastP90Ms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checkjtl_last_run_p90_latency_ms",
			Help: "90th percentile latency of the most recent evaluated run",
		}),
		lastP95Ms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checkjtl_last_run_p95_latency_ms",
			Help: "95th percentile latency of the most recent evaluated run",
		}),
		lastHTTP5xx: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checkjtl_last_run_http_5xx_total",
			Help: "HTTP 5xx count of the most recent evaluated run",
		}),
		lastSLAPassed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checkjtl_last_run_sla_passed",
			Help: "Whether the most recent evaluated run met the SLA (1 or 0)",
		}),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkjtl_sla_evaluations_total",
				Help: "Total SLA evaluations by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		c.lastSamples,
		c.lastErrorPct,
		c.lastTPS,
		c.lastAvgMs,
		c.lastP90Ms,
		c.lastP95Ms,
		c.lastHTTP5xx,
		c.lastSLAPassed,
		c.evaluations,
	)

	return c
}

// Record publishes one evaluated run. Gauges take full-precision values,
// not the rounded ones written to the summary.
func (c *Collector) Record(m *analysis.Metrics, v *sla.Verdict) {
	c.lastSamples.Set(float64(m.TotalSamples))
	c.lastErrorPct.Set(m.ErrorRatePct)
	c.lastTPS.Set(m.TPS)
	c.lastAvgMs.Set(m.AvgLatencyMs)
	c.lastP90Ms.Set(m.P90LatencyMs)
	c.lastP95Ms.Set(m.P95LatencyMs)
	c.lastHTTP5xx.Set(float64(m.HTTP5xx))

	if v.Passed {
		c.lastSLAPassed.Set(1)
		c.evaluations.WithLabelValues("pass").Inc()
	} else {
		c.lastSLAPassed.Set(0)
		c.evaluations.WithLabelValues("fail").Inc()
	}
}

// Handler returns the Prometheus scrape handler for serve mode.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Push sends the current metrics to a Pushgateway, grouped under job. Used
// after one-shot runs where nothing stays up to scrape.
func (c *Collector) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(c.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
