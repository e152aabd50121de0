package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avtr-nvivas/check-jtl/internal/sla"
)

func validSummaryDoc(t *testing.T) map[string]interface{} {
	t.Helper()
	m := passingMetrics()
	th := sla.DefaultThresholds()
	s := Build(testRunInfo(), m, sla.Evaluate(m, th), th)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func marshal(t *testing.T, doc map[string]interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func TestValidateSummary(t *testing.T) {
	t.Run("built summary passes", func(t *testing.T) {
		assert.NoError(t, ValidateSummary(marshal(t, validSummaryDoc(t))))
	})

	t.Run("missing field fails", func(t *testing.T) {
		doc := validSummaryDoc(t)
		delete(doc, "tps")

		err := ValidateSummary(marshal(t, doc))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tps")
	})

	t.Run("wrong type fails", func(t *testing.T) {
		doc := validSummaryDoc(t)
		doc["sla_passed"] = "yes"

		assert.Error(t, ValidateSummary(marshal(t, doc)))
	})

	t.Run("unknown field fails", func(t *testing.T) {
		doc := validSummaryDoc(t)
		doc["bonus_metric"] = 1

		assert.Error(t, ValidateSummary(marshal(t, doc)))
	})

	t.Run("sub-second timestamp fails", func(t *testing.T) {
		doc := validSummaryDoc(t)
		doc["timestamp"] = "2026-08-23T10:00:00.123Z"

		assert.Error(t, ValidateSummary(marshal(t, doc)))
	})

	t.Run("zero samples fails", func(t *testing.T) {
		doc := validSummaryDoc(t)
		doc["samples_total"] = 0

		assert.Error(t, ValidateSummary(marshal(t, doc)))
	})

	t.Run("error rate above hundred fails", func(t *testing.T) {
		doc := validSummaryDoc(t)
		doc["error_pct"] = 101.5

		assert.Error(t, ValidateSummary(marshal(t, doc)))
	})

	t.Run("not json fails", func(t *testing.T) {
		assert.Error(t, ValidateSummary([]byte("not json")))
	})
}
