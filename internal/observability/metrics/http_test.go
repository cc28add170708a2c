package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/analyze", nil))

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodPost, "/analyze", "418"))
	if got != 1 {
		t.Fatalf("expected 1 request, got %v", got)
	}
}

func TestRecordAnalysisExposesCounters(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.RecordAnalysis("text", "keyword", "success", 20*time.Millisecond)
	m.RecordAnalysis("", "", "rejected", time.Millisecond)
	m.RecordRejected("rate_limited")

	if got := testutil.ToFloat64(m.analysisTotal.WithLabelValues("api", "unknown", "unknown", "rejected")); got != 1 {
		t.Fatalf("expected unknown labels to be filled, got %v", got)
	}

	res := httptest.NewRecorder()
	m.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := res.Body.String()
	for _, want := range []string{
		`analyzer_analysis_total{classifier="keyword",outcome="success",service="api",source="text"} 1`,
		`analyzer_http_rejected_total{reason="rate_limited",service="api"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}
