package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("/x", "GET", 200, time.Millisecond)
	m.TransactionWrite("create")
	m.ReceiptExtraction("text", true, nil)
	m.CacheLookup(true)
	m.Event("publish", nil)
	m.RateLimited()
	m.TotalsRefreshed()
	if m.Registry() != nil {
		t.Fatal("nil metrics has no registry")
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.TransactionWrite("create")
	m.TransactionWrite("create")
	m.TransactionWrite("delete")
	m.ReceiptExtraction("image", false, errors.New("ocr down"))
	m.CacheLookup(false)

	if got := testutil.ToFloat64(m.transactions.WithLabelValues("create")); got != 2 {
		t.Fatalf("expected 2 creates, got %v", got)
	}
	if got := testutil.ToFloat64(m.receipts.WithLabelValues("image", "error")); got != 1 {
		t.Fatalf("expected 1 receipt error, got %v", got)
	}
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")); got != 1 {
		t.Fatalf("expected 1 cache miss, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/transactions", "GET", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `fintrack_http_requests_total{code="200",method="GET",route="/api/transactions"} 1`) {
		t.Fatalf("request counter missing from output:\n%s", body)
	}
}
