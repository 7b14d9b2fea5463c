package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveImport(t *testing.T) {
	m := New()

	m.ObserveImport(ResultSuccess, 120*time.Millisecond)
	m.ObserveImport(ResultSuccess, 80*time.Millisecond)
	m.ObserveImport(ResultInvalid, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.imports.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.imports.WithLabelValues(ResultInvalid)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.importDuration))
}

func TestMetrics_ObserveReport(t *testing.T) {
	m := New()

	m.ObserveReport(models.ImportReport{Matched: 10, Accepted: 7, Noise: 2, InvalidDates: 1, Failures: 3})
	m.SetSnapshotEntries(7)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.records.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.records.WithLabelValues("noise")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.records.WithLabelValues("invalid_date")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.fragmentFailures))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.snapshotEntries))
}

func TestMetrics_InsightAndCache(t *testing.T) {
	m := New()

	m.ObserveInsight("habits", "complete", time.Second)
	m.ObserveInsight("habits", "error", time.Second)
	m.CacheLookup("l1")
	m.CacheLookup("miss")
	m.CacheLookup("miss")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.insights.WithLabelValues("habits", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveImport(ResultFailed, time.Second)
		m.ObserveReport(models.ImportReport{Accepted: 1})
		m.SetSnapshotEntries(1)
		m.ObserveInsight("music", "complete", time.Second)
		m.CacheLookup("l2")
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveImport(ResultSuccess, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "watch_history_imports_total"))
}
