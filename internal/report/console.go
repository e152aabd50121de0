package report

import (
	"fmt"

	"github.com/avtr-nvivas/check-jtl/internal/analysis"
	"github.com/avtr-nvivas/check-jtl/internal/sla"
)

// maxFailingSamplers caps the breakdown section on noisy runs.
const maxFailingSamplers = 5

// RenderConsole creates the human-readable gate report.
func RenderConsole(s *Summary, m *analysis.Metrics, v *sla.Verdict) string {
	report := "Load Test SLA Report\n"
	report += "====================\n\n"
	report += fmt.Sprintf("Test: %s\n", s.TestName)
	report += fmt.Sprintf("Generated: %s\n\n", s.Timestamp)

	report += "Performance Results\n"
	report += "-------------------\n"
	report += fmt.Sprintf("Total Samples    : %d\n", s.SamplesTotal)
	report += fmt.Sprintf("Samples OK / KO  : %d / %d\n", s.SamplesOK, s.SamplesKO)
	report += fmt.Sprintf("Test Duration    : %.2f s\n", m.DurationSeconds)
	report += fmt.Sprintf("Error Rate       : %.2f%% (SLA max %.2f%%)\n", s.ErrorPct, s.SLAMaxErrorPct)
	report += fmt.Sprintf("Average Latency  : %.2f ms (SLA max %.0f ms)\n", s.AvgRTMs, s.SLAMaxAvgLatencyMs)
	report += fmt.Sprintf("Throughput       : %.2f tps (SLA min %.2f tps)\n", s.TPS, s.SLAMinTPS)
	report += fmt.Sprintf("Percentiles      : p90=%.2f ms, p95=%.2f ms\n", s.P90RTMs, s.P95RTMs)
	report += fmt.Sprintf("HTTP 5xx         : %d\n\n", s.HTTP500)

	report += "SLA Evaluation\n"
	report += "--------------\n"
	for _, rule := range v.Rules {
		mark := "✓"
		if !rule.Passed {
			mark = "✗"
		}
		report += fmt.Sprintf("  %s %s\n", mark, rule.Reason)
	}
	report += "\n"

	if !v.Passed {
		if section := renderFailingSamplers(m.Labels); section != "" {
			report += section
		}
	}

	status := "PASS"
	if !v.Passed {
		status = "FAIL"
	}
	report += fmt.Sprintf("Overall Status: %s\n", status)

	return report
}

// renderFailingSamplers lists the samplers with errors, worst first. Returns
// the empty string when no sampler recorded an error.
func renderFailingSamplers(labels []analysis.LabelStat) string {
	section := ""
	listed := 0
	for _, l := range labels {
		if l.Errors == 0 || listed == maxFailingSamplers {
			break
		}
		if listed == 0 {
			section = "Failing Samplers\n"
			section += "----------------\n"
		}
		section += fmt.Sprintf("  %-24s %d/%d errors\n", l.Label, l.Errors, l.Samples)
		listed++
	}
	if section != "" {
		section += "\n"
	}
	return section
}
