package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordInvoiceGenerated("monthly")
		m.RecordInvoiceTransition("open", "overdue", 3)
		m.RecordPaymentConfirmed("monthly", "paid")
		m.RecordInstallmentsCreated(2)
		m.RecordCostsMaterialized(1, 1)
		m.RecordAutomationStep("invoices", nil, time.Second)
		m.RecordNotificationSent("email", nil)
		m.RecordCacheLookup("redis", true)
		m.UpdateDBStats(nil)
	})
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordInvoiceGenerated("monthly")
	m.RecordInvoiceGenerated("monthly")
	m.RecordInvoiceTransition("OPEN", "OVERDUE", 3)
	m.RecordInvoiceTransition("OPEN", "PAID", 0)
	m.RecordAutomationStep("overdue", errors.New("boom"), 10*time.Millisecond)
	m.RecordCacheLookup("lru", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.InvoicesGeneratedTotal.WithLabelValues("monthly")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.InvoiceTransitionsTotal.WithLabelValues("OPEN", "OVERDUE")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InvoiceTransitionsTotal.WithLabelValues("OPEN", "PAID")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AutomationStepsTotal.WithLabelValues("overdue", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportCacheMissesTotal.WithLabelValues("lru")))
}

func TestMetricsHTTPMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(m.HTTPMiddleware)
	router.HandleFunc("/api/orgs/{org_id}/invoices", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}).Methods(http.MethodPost)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/orgs/1/invoices", nil))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/orgs/{org_id}/invoices", "201")))

	metricsRR := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metricsRR.Body.String(), "clientbill_http_requests_total")
}
