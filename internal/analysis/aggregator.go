// Package analysis aggregates load test samples into run-level metrics.
package analysis

import (
	"errors"
	"math"
	"sort"

	"github.com/avtr-nvivas/check-jtl/internal/jtl"
)

// ErrNoSamples indicates the results file contained no sample rows.
var ErrNoSamples = errors.New("no samples found in results file")

// Metrics holds the derived metrics for a completed run. Values carry full
// precision; rounding happens at the reporting boundary.
type Metrics struct {
	TotalSamples    int64
	SamplesOK       int64
	SamplesKO       int64
	HTTP5xx         int64
	ErrorRatePct    float64
	AvgLatencyMs    float64
	DurationSeconds float64
	TPS             float64
	P90LatencyMs    float64
	P95LatencyMs    float64
	Labels          []LabelStat
}

// LabelStat is the per-sampler breakdown of a run.
type LabelStat struct {
	Label   string
	Samples int64
	Errors  int64
}

// Aggregator accumulates samples in a single pass. The zero value is not
// usable; construct with NewAggregator.
type Aggregator struct {
	total      int64
	errors     int64
	http5xx    int64
	latencySum int64
	minStart   int64
	maxEnd     int64
	latencies  []int64
	labels     map[string]*LabelStat
}

// NewAggregator returns an empty aggregator ready to receive samples.
func NewAggregator() *Aggregator {
	return &Aggregator{
		minStart: math.MaxInt64,
		maxEnd:   math.MinInt64,
		labels:   make(map[string]*LabelStat),
	}
}

// Add folds one sample into the running aggregate.
func (a *Aggregator) Add(s jtl.Sample) {
	a.total++
	a.latencySum += s.Elapsed
	a.latencies = append(a.latencies, s.Elapsed)

	if s.Timestamp < a.minStart {
		a.minStart = s.Timestamp
	}
	if end := s.End(); end > a.maxEnd {
		a.maxEnd = end
	}

	if !s.Success {
		a.errors++
	}
	if s.IsServerError() {
		a.http5xx++
	}

	stat, ok := a.labels[s.Label]
	if !ok {
		stat = &LabelStat{Label: s.Label}
		a.labels[s.Label] = stat
	}
	stat.Samples++
	if !s.Success {
		stat.Errors++
	}
}

// Count returns the number of samples added so far.
func (a *Aggregator) Count() int64 {
	return a.total
}

// Finalize derives the run metrics from the accumulated samples. It returns
// ErrNoSamples when nothing was added. Finalize does not mutate the
// aggregator, so calling it twice yields identical metrics.
func (a *Aggregator) Finalize() (*Metrics, error) {
	if a.total == 0 {
		return nil, ErrNoSamples
	}

	m := &Metrics{
		TotalSamples: a.total,
		SamplesOK:    a.total - a.errors,
		SamplesKO:    a.errors,
		HTTP5xx:      a.http5xx,
		ErrorRatePct: float64(a.errors) / float64(a.total) * 100.0,
		AvgLatencyMs: float64(a.latencySum) / float64(a.total),
	}

	durationMs := a.maxEnd - a.minStart
	if durationMs > 0 {
		m.DurationSeconds = float64(durationMs) / 1000.0
		m.TPS = float64(a.total) / m.DurationSeconds
	}

	sorted := make([]int64, len(a.latencies))
	copy(sorted, a.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	m.P90LatencyMs = PercentileSorted(sorted, 0.90)
	m.P95LatencyMs = PercentileSorted(sorted, 0.95)

	m.Labels = a.labelStats()
	return m, nil
}

// labelStats returns the per-label counts sorted by errors, then samples,
// then name, so report output is deterministic.
func (a *Aggregator) labelStats() []LabelStat {
	stats := make([]LabelStat, 0, len(a.labels))
	for _, s := range a.labels {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Errors != stats[j].Errors {
			return stats[i].Errors > stats[j].Errors
		}
		if stats[i].Samples != stats[j].Samples {
			return stats[i].Samples > stats[j].Samples
		}
		return stats[i].Label < stats[j].Label
	})
	return stats
}
