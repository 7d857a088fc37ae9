package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KirkDiggler/cduello/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New()

	m.Requests.WithLabelValues(metrics.RequestSent).Inc()
	m.Requests.WithLabelValues(metrics.RequestSent).Inc()
	m.DuelsEnded.WithLabelValues(metrics.OutcomeFinished).Inc()
	m.Payouts.Add(160)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues(metrics.RequestSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DuelsEnded.WithLabelValues(metrics.OutcomeFinished)))
	assert.Equal(t, 160.0, testutil.ToFloat64(m.Payouts))
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.DuelsStarted.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "cduello_duels_started_total 1"))
}
