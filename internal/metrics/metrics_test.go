package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()
	require.NotNil(t, m)
	require.NotNil(t, m.Registry())
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.RecordReport("missing")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.reportsGenerated.WithLabelValues("missing")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.reportsGenerated.WithLabelValues("missing")))
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestRecordRequest(t *testing.T) {
	m := New()
	m.RecordRequest("/api/comparison/compare", 200, 2*time.Second)
	m.RecordRequest("/api/comparison/compare", 400, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/comparison/compare", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/comparison/compare", "400")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestRecordPage(t *testing.T) {
	m := New()
	m.RecordPage("ok", 4, time.Second)
	m.RecordPage("failed", 0, time.Second)
	m.RecordPage("rejected", 0, 0)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.linesTotal))

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.PagesOK)
	assert.Equal(t, int64(2), s.PagesFailed)
}

func TestRecordReconciliation(t *testing.T) {
	m := New()
	m.RecordReconciliation(120, 3, 1)
	m.RecordReconciliation(80, 2, 0)

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Reconciliations)
	assert.Equal(t, int64(5), s.MissingProducts)
	assert.Equal(t, int64(1), s.NameMismatches)
}

func TestSetBreakerState(t *testing.T) {
	m := New()
	m.SetBreakerState("gemini", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.breakerState.WithLabelValues("gemini")))
}

func TestRecordUploadsSwept(t *testing.T) {
	m := New()
	m.RecordUploadsSwept(3)

	assert.Equal(t, int64(3), m.Snapshot().UploadsSwept)
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.RecordReport("parsed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, body, `invoice_audit_reports_generated_total{type="parsed"} 1`)
	assert.Contains(t, body, "invoice_audit_uptime_seconds")
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
