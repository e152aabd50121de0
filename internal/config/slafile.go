package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avtr-nvivas/check-jtl/internal/sla"
)

// thresholdsFile mirrors the optional SLA overrides document. Pointer fields
// distinguish "absent" from "zero".
type thresholdsFile struct {
	MaxErrorRatePct *float64 `yaml:"max_error_rate_pct"`
	MaxAvgLatencyMs *float64 `yaml:"max_avg_latency_ms"`
	MinTPS          *float64 `yaml:"min_tps"`
}

// LoadThresholdsFile overlays SLA limits from a YAML file onto base. Keys
// absent from the file keep their base values.
func LoadThresholdsFile(path string, base sla.Thresholds) (sla.Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read sla config %s: %w", path, err)
	}

	var doc thresholdsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return base, fmt.Errorf("parse sla config %s: %w", path, err)
	}

	if doc.MaxErrorRatePct != nil {
		base.MaxErrorRatePct = *doc.MaxErrorRatePct
	}
	if doc.MaxAvgLatencyMs != nil {
		base.MaxAvgLatencyMs = *doc.MaxAvgLatencyMs
	}
	if doc.MinTPS != nil {
		base.MinTPS = *doc.MinTPS
	}

	if base.MaxErrorRatePct < 0 || base.MaxAvgLatencyMs < 0 || base.MinTPS < 0 {
		return base, fmt.Errorf("sla config %s: thresholds must not be negative", path)
	}
	return base, nil
}
