package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, router http.Handler) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 from /metrics, got %d", w.Code)
	}
	return w.Body.String()
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Use(metrics.Middleware())
	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	testReq := httptest.NewRequest("GET", "/ping", nil)
	testW := httptest.NewRecorder()
	router.ServeHTTP(testW, testReq)

	if testW.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", testW.Code)
	}
	if testW.Body.String() != "pong" {
		t.Errorf("Expected body 'pong', got '%s'", testW.Body.String())
	}

	body := scrape(t, router)
	for _, metric := range []string{"shop_admin_http_requests_total", "shop_admin_http_request_duration_seconds", "go_goroutines"} {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected metric '%s' not found in response", metric)
		}
	}
	if !strings.Contains(body, `path="/ping"`) {
		t.Error("Expected metrics to contain path label for /ping endpoint")
	}
	if !strings.Contains(body, `status="200"`) {
		t.Error("Expected numeric status label")
	}
}

func TestMetricsWithChiRoutePatterns(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Use(metrics.Middleware())
	router.Get("/customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	testReq := httptest.NewRequest("GET", "/customers/123", nil)
	router.ServeHTTP(httptest.NewRecorder(), testReq)

	body := scrape(t, router)
	if !strings.Contains(body, `path="/customers/{id}"`) {
		t.Error("Expected metrics to contain Chi route pattern, not actual path")
	}
	if !strings.Contains(body, `status="404"`) {
		t.Error("Expected the 404 status to be recorded")
	}
}

func TestBusinessCounters(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	metrics.recordRefresh("ok")
	metrics.recordTransaction("sale")
	metrics.recordStockMove("out", 2)
	metrics.RecordImport(3, 1, 0)

	body := scrape(t, router)
	for _, want := range []string{
		`shop_admin_token_refresh_total{result="ok"} 1`,
		`shop_admin_transactions_created_total{type="sale"} 1`,
		`shop_admin_stock_adjustments_total{direction="out"} 2`,
		`shop_admin_import_rows_total{outcome="inserted"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.recordRefresh("ok")
	m.recordTransaction("sale")
	m.recordStockMove("in", 1)
	m.RecordImport(1, 1, 1)
}
