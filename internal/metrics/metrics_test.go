package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObserveOutcome(t *testing.T) {
	m := New()
	m.ObserveOutcome("create", "ok")
	m.ObserveOutcome("create", "ok")
	m.ObserveOutcome("update", "unauthorized")

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "pagebin_entry_operations_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			var op, outcome string
			for _, lp := range metric.GetLabel() {
				switch lp.GetName() {
				case "op":
					op = lp.GetValue()
				case "outcome":
					outcome = lp.GetValue()
				}
			}
			got[op+"/"+outcome] = metric.GetCounter().GetValue()
		}
	}
	require.Equal(t, map[string]float64{"create/ok": 2, "update/unauthorized": 1}, got)
}

func TestHandlerExposesRequests(t *testing.T) {
	m := New()
	m.ObserveRequest("/{id}", http.MethodGet, http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest("", http.MethodGet, http.StatusNotFound, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	require.True(t, strings.Contains(text, `pagebin_http_requests_total{method="GET",route="/{id}",status="200"} 1`), text)
	require.True(t, strings.Contains(text, `route="unmatched"`))
	require.True(t, strings.Contains(text, "pagebin_http_request_duration_seconds_bucket"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveOutcome("view", "ok")
	m.ObserveRequest("/", http.MethodGet, http.StatusOK, time.Millisecond)
	require.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
