package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	require.NotNil(t, m)
	assert.NotNil(t, m.APICallsTotal)
	assert.NotNil(t, m.ProcedureCallsTotal)
}

func TestObserveAPICall(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPICall("list_agents", "200", 120*time.Millisecond)
	m.ObserveAPICall("list_agents", "200", 80*time.Millisecond)
	m.ObserveAPICall("run_agent", "error", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APICallsTotal.WithLabelValues("list_agents", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICallsTotal.WithLabelValues("run_agent", "error")))
}

func TestObserveProcedure(t *testing.T) {
	m := NewMetrics()
	m.ObserveProcedure("RUN_PRICE_OPTIMIZATION", nil)
	m.ObserveProcedure("RUN_PRICE_OPTIMIZATION", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcedureCallsTotal.WithLabelValues("RUN_PRICE_OPTIMIZATION", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcedureCallsTotal.WithLabelValues("RUN_PRICE_OPTIMIZATION", "error")))
}

func TestObserveQueryCountsErrors(t *testing.T) {
	m := NewMetrics()
	m.ObserveQuery("price_comparison", time.Millisecond, nil)
	m.ObserveQuery("price_comparison", time.Millisecond, errors.New("relation missing"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryErrorsTotal.WithLabelValues("price_comparison")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
		m.ObserveAPICall("list_agents", "200", time.Millisecond)
		m.ObserveQuery("q", time.Millisecond, nil)
		m.ObserveProcedure("p", nil)
	})
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveHTTP("GET", "/", http.StatusOK, 5*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "agentdash_http_requests_total")
}
