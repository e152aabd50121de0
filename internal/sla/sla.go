// Package sla evaluates run metrics against service level thresholds.
package sla

import (
	"fmt"

	"github.com/avtr-nvivas/check-jtl/internal/analysis"
)

// Rule names in evaluation order.
const (
	RuleNo5xx      = "no-5xx"
	RuleErrorRate  = "error-rate"
	RuleAvgLatency = "avg-latency"
	RuleThroughput = "throughput"
)

// Thresholds holds the limits a run must meet. Passed by value and never
// mutated. Zero tolerance for HTTP 5xx responses is fixed, not configurable.
type Thresholds struct {
	MaxErrorRatePct float64
	MaxAvgLatencyMs float64
	MinTPS          float64
}

// DefaultThresholds returns the limits applied when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxErrorRatePct: 1.0,
		MaxAvgLatencyMs: 3000,
		MinTPS:          5,
	}
}

// RuleResult captures the outcome of one SLA rule. Reason names the measured
// value and the threshold whether the rule passed or failed; consumers parse
// these lines, so the wording is stable.
type RuleResult struct {
	Name      string
	Passed    bool
	Measured  float64
	Threshold float64
	Reason    string
}

// Verdict is the outcome of evaluating a run against the thresholds.
type Verdict struct {
	Passed bool
	Rules  []RuleResult
}

// Evaluate checks run metrics against the thresholds. The four rules run in
// a fixed order and every rule contributes a reason line; the verdict passes
// only when all rules pass.
func Evaluate(m *analysis.Metrics, t Thresholds) *Verdict {
	v := &Verdict{Passed: true, Rules: make([]RuleResult, 0, 4)}

	no5xx := RuleResult{Name: RuleNo5xx, Measured: float64(m.HTTP5xx), Threshold: 0}
	if m.HTTP5xx > 0 {
		no5xx.Reason = fmt.Sprintf("detected %d HTTP 5xx responses (none allowed)", m.HTTP5xx)
	} else {
		no5xx.Passed = true
		no5xx.Reason = fmt.Sprintf("no HTTP 5xx responses (%d observed)", m.HTTP5xx)
	}
	v.add(no5xx)

	errRate := RuleResult{Name: RuleErrorRate, Measured: m.ErrorRatePct, Threshold: t.MaxErrorRatePct}
	if m.ErrorRatePct > t.MaxErrorRatePct {
		errRate.Reason = fmt.Sprintf("error rate %.2f%% > limit %.2f%%", m.ErrorRatePct, t.MaxErrorRatePct)
	} else {
		errRate.Passed = true
		errRate.Reason = fmt.Sprintf("error rate %.2f%% <= limit %.2f%%", m.ErrorRatePct, t.MaxErrorRatePct)
	}
	v.add(errRate)

	avgLat := RuleResult{Name: RuleAvgLatency, Measured: m.AvgLatencyMs, Threshold: t.MaxAvgLatencyMs}
	if m.AvgLatencyMs > t.MaxAvgLatencyMs {
		avgLat.Reason = fmt.Sprintf("average latency %.2f ms > limit %.0f ms", m.AvgLatencyMs, t.MaxAvgLatencyMs)
	} else {
		avgLat.Passed = true
		avgLat.Reason = fmt.Sprintf("average latency %.2f ms <= limit %.0f ms", m.AvgLatencyMs, t.MaxAvgLatencyMs)
	}
	v.add(avgLat)

	tps := RuleResult{Name: RuleThroughput, Measured: m.TPS, Threshold: t.MinTPS}
	if m.TPS < t.MinTPS {
		tps.Reason = fmt.Sprintf("throughput %.2f tps < minimum %.2f tps", m.TPS, t.MinTPS)
	} else {
		tps.Passed = true
		tps.Reason = fmt.Sprintf("throughput %.2f tps >= minimum %.2f tps", m.TPS, t.MinTPS)
	}
	v.add(tps)

	return v
}

func (v *Verdict) add(r RuleResult) {
	v.Rules = append(v.Rules, r)
	if !r.Passed {
		v.Passed = false
	}
}

// Reasons returns every rule's reason line in evaluation order.
func (v *Verdict) Reasons() []string {
	reasons := make([]string, 0, len(v.Rules))
	for _, r := range v.Rules {
		reasons = append(reasons, r.Reason)
	}
	return reasons
}

// FailedRules returns the rules that did not pass.
func (v *Verdict) FailedRules() []RuleResult {
	failed := make([]RuleResult, 0)
	for _, r := range v.Rules {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
