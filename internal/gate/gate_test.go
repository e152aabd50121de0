package gate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avtr-nvivas/check-jtl/internal/analysis"
	"github.com/avtr-nvivas/check-jtl/internal/config"
	"github.com/avtr-nvivas/check-jtl/internal/jtl"
	"github.com/avtr-nvivas/check-jtl/internal/metrics"
	"github.com/avtr-nvivas/check-jtl/internal/report"
)

const passingJTL = `timeStamp,elapsed,label,responseCode,success
0,100,Login,200,true
100,200,Search,200,true
300,300,Checkout,200,true
600,100,Logout,200,true
`

const failingJTL = `timeStamp,elapsed,label,responseCode,success
0,100,Login,200,true
100,200,Search,500,false
300,300,Checkout,200,true
600,100,Logout,200,true
`

type fakeHistory struct {
	runID   string
	summary *report.Summary
	err     error
}

func (f *fakeHistory) SaveRun(_ context.Context, runID string, s *report.Summary) error {
	f.runID = runID
	f.summary = s
	return f.err
}

type fakeArtifacts struct {
	payload   string
	fetched   string
	fetchErr  error
	published map[string][]byte
	cleaned   bool
}

func (f *fakeArtifacts) Fetch(_ context.Context, rawURL string) (string, func(), error) {
	f.fetched = rawURL
	if f.fetchErr != nil {
		return "", nil, f.fetchErr
	}
	tmp, err := os.CreateTemp("", "gate-test-*.jtl")
	if err != nil {
		return "", nil, err
	}
	if _, err := tmp.WriteString(f.payload); err != nil {
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		return "", nil, err
	}
	return tmp.Name(), func() { f.cleaned = true; _ = os.Remove(tmp.Name()) }, nil
}

func (f *fakeArtifacts) SummaryKey(testName, runID string) string {
	return fmt.Sprintf("artifacts/%s/%s/summary.json", testName, runID)
}

func (f *fakeArtifacts) PublishSummary(_ context.Context, key string, data []byte) error {
	if f.published == nil {
		f.published = map[string][]byte{}
	}
	f.published[key] = data
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.SummaryPath = filepath.Join(t.TempDir(), "summary.json")
	return cfg
}

func writeResults(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.jtl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGateRun(t *testing.T) {
	ctx := context.Background()

	t.Run("evaluates a passing run", func(t *testing.T) {
		cfg := testConfig(t)
		g := New(cfg, zap.NewNop(), Options{})

		result, err := g.Run(ctx, writeResults(t, passingJTL))
		require.NoError(t, err)

		assert.True(t, result.Verdict.Passed)
		assert.True(t, result.Summary.SLAPassed)
		assert.NoError(t, result.WriteErr)
		assert.Contains(t, result.Console, "Overall Status: PASS")
		assert.Equal(t, int64(4), result.Metrics.TotalSamples)

		_, err = uuid.Parse(result.RunID)
		assert.NoError(t, err)

		written, err := os.ReadFile(cfg.Output.SummaryPath)
		require.NoError(t, err)
		assert.Contains(t, string(written), `"sla_passed": true`)
	})

	t.Run("evaluates a failing run", func(t *testing.T) {
		cfg := testConfig(t)
		g := New(cfg, zap.NewNop(), Options{})

		result, err := g.Run(ctx, writeResults(t, failingJTL))
		require.NoError(t, err)

		assert.False(t, result.Verdict.Passed)
		assert.False(t, result.Summary.SLAPassed)
		assert.Contains(t, result.Console, "Overall Status: FAIL")
	})

	t.Run("missing source is fatal", func(t *testing.T) {
		g := New(testConfig(t), zap.NewNop(), Options{})

		_, err := g.Run(ctx, filepath.Join(t.TempDir(), "absent.jtl"))
		assert.ErrorIs(t, err, jtl.ErrSourceNotFound)
	})

	t.Run("empty results are fatal", func(t *testing.T) {
		cfg := testConfig(t)
		g := New(cfg, zap.NewNop(), Options{})

		_, err := g.Run(ctx, writeResults(t, "timeStamp,elapsed,label,responseCode,success\n"))
		assert.ErrorIs(t, err, analysis.ErrNoSamples)

		_, statErr := os.Stat(cfg.Output.SummaryPath)
		assert.True(t, os.IsNotExist(statErr), "no summary should be written for a fatal run")
	})

	t.Run("summary write failure does not flip the verdict", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Output.SummaryPath = filepath.Join(t.TempDir(), "no-such-dir", "summary.json")
		g := New(cfg, zap.NewNop(), Options{})

		result, err := g.Run(ctx, writeResults(t, passingJTL))
		require.NoError(t, err)

		assert.Error(t, result.WriteErr)
		assert.True(t, result.Verdict.Passed)
	})

	t.Run("test name defaults to source base name", func(t *testing.T) {
		g := New(testConfig(t), zap.NewNop(), Options{})

		result, err := g.Run(ctx, writeResults(t, passingJTL))
		require.NoError(t, err)
		assert.Equal(t, "results.jtl", result.Summary.TestName)
	})

	t.Run("configured test name wins", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Run.TestName = "checkout-smoke"
		g := New(cfg, zap.NewNop(), Options{})

		result, err := g.Run(ctx, writeResults(t, passingJTL))
		require.NoError(t, err)
		assert.Equal(t, "checkout-smoke", result.Summary.TestName)
	})
}

func TestGateRunStages(t *testing.T) {
	ctx := context.Background()

	t.Run("archives the run to history", func(t *testing.T) {
		hist := &fakeHistory{}
		g := New(testConfig(t), zap.NewNop(), Options{History: hist})

		result, err := g.Run(ctx, writeResults(t, passingJTL))
		require.NoError(t, err)

		assert.Equal(t, result.RunID, hist.runID)
		require.NotNil(t, hist.summary)
		assert.Equal(t, result.Summary.TestName, hist.summary.TestName)
	})

	t.Run("history failure does not abort the run", func(t *testing.T) {
		hist := &fakeHistory{err: errors.New("connection refused")}
		g := New(testConfig(t), zap.NewNop(), Options{History: hist})

		result, err := g.Run(ctx, writeResults(t, passingJTL))
		require.NoError(t, err)
		assert.True(t, result.Verdict.Passed)
	})

	t.Run("fetches s3 sources through the artifact store", func(t *testing.T) {
		store := &fakeArtifacts{payload: passingJTL}
		g := New(testConfig(t), zap.NewNop(), Options{Artifacts: store})

		result, err := g.Run(ctx, "s3://loadtest/runs/results.jtl")
		require.NoError(t, err)

		assert.Equal(t, "s3://loadtest/runs/results.jtl", store.fetched)
		assert.True(t, store.cleaned)
		assert.Equal(t, "results.jtl", result.Summary.TestName)
	})

	t.Run("s3 source without a store is fatal", func(t *testing.T) {
		g := New(testConfig(t), zap.NewNop(), Options{})

		_, err := g.Run(ctx, "s3://loadtest/runs/results.jtl")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "artifact store not configured")
	})

	t.Run("fetch failure is fatal", func(t *testing.T) {
		store := &fakeArtifacts{fetchErr: jtl.ErrSourceNotFound}
		g := New(testConfig(t), zap.NewNop(), Options{Artifacts: store})

		_, err := g.Run(ctx, "s3://loadtest/runs/results.jtl")
		assert.ErrorIs(t, err, jtl.ErrSourceNotFound)
	})

	t.Run("publishes the summary when a bucket is configured", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Run.TestName = "checkout-smoke"
		cfg.Artifact.Bucket = "loadtest"
		store := &fakeArtifacts{payload: passingJTL}
		g := New(cfg, zap.NewNop(), Options{Artifacts: store})

		result, err := g.Run(ctx, writeResults(t, passingJTL))
		require.NoError(t, err)

		key := fmt.Sprintf("artifacts/checkout-smoke/%s/summary.json", result.RunID)
		require.Contains(t, store.published, key)
		assert.Contains(t, string(store.published[key]), `"test_name": "checkout-smoke"`)
	})

	t.Run("skips publishing without a bucket", func(t *testing.T) {
		store := &fakeArtifacts{payload: passingJTL}
		g := New(testConfig(t), zap.NewNop(), Options{Artifacts: store})

		_, err := g.Run(ctx, writeResults(t, passingJTL))
		require.NoError(t, err)
		assert.Empty(t, store.published)
	})

	t.Run("records the evaluation on the collector", func(t *testing.T) {
		collector := metrics.NewCollector()
		g := New(testConfig(t), zap.NewNop(), Options{Collector: collector})

		_, err := g.Run(ctx, writeResults(t, passingJTL))
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body := rec.Body.String()
		assert.Contains(t, body, "checkjtl_last_run_samples_total 4")
		assert.Contains(t, body, `checkjtl_sla_evaluations_total{result="pass"} 1`)
	})
}
