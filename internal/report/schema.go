package report

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// summarySchema is the contract for the summary document. Every field is
// required and no extras are allowed, so a drifting encoder fails loudly
// instead of shipping a half-filled artifact.
const summarySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": [
    "test_name", "timestamp", "threads", "rampup", "duration", "repo", "jmx",
    "samples_total", "samples_ok", "samples_ko", "http_500", "error_pct",
    "tps", "avg_rt_ms", "p90_rt_ms", "p95_rt_ms",
    "sla_min_tps", "sla_max_error_pct", "sla_max_avg_latency_ms",
    "sla_passed", "sla_reasons"
  ],
  "properties": {
    "test_name": {"type": "string"},
    "timestamp": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}T\\d{2}:\\d{2}:\\d{2}Z$"},
    "threads": {"type": "integer"},
    "rampup": {"type": "integer"},
    "duration": {"type": "integer"},
    "repo": {"type": "string"},
    "jmx": {"type": "string"},
    "samples_total": {"type": "integer", "minimum": 1},
    "samples_ok": {"type": "integer", "minimum": 0},
    "samples_ko": {"type": "integer", "minimum": 0},
    "http_500": {"type": "integer", "minimum": 0},
    "error_pct": {"type": "number", "minimum": 0, "maximum": 100},
    "tps": {"type": "number", "minimum": 0},
    "avg_rt_ms": {"type": "number", "minimum": 0},
    "p90_rt_ms": {"type": "number", "minimum": 0},
    "p95_rt_ms": {"type": "number", "minimum": 0},
    "sla_min_tps": {"type": "number"},
    "sla_max_error_pct": {"type": "number"},
    "sla_max_avg_latency_ms": {"type": "number"},
    "sla_passed": {"type": "boolean"},
    "sla_reasons": {"type": "array", "items": {"type": "string"}, "minItems": 4}
  }
}`

// ValidateSummary checks an encoded summary document against the schema.
func ValidateSummary(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(summarySchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		errors := make([]string, 0, len(result.Errors()))
		for _, err := range result.Errors() {
			errors = append(errors, err.String())
		}
		return fmt.Errorf("summary validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
