package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Billing metrics
	InvoicesGeneratedTotal  *prometheus.CounterVec
	InvoiceTransitionsTotal *prometheus.CounterVec
	PaymentsConfirmedTotal  *prometheus.CounterVec
	InstallmentsCreated     prometheus.Counter
	CostsMaterializedTotal  *prometheus.CounterVec

	// Automation metrics
	AutomationStepsTotal   *prometheus.CounterVec
	AutomationStepDuration *prometheus.HistogramVec

	// Notification metrics
	NotificationsSentTotal *prometheus.CounterVec

	// Cache metrics
	ReportCacheHitsTotal   *prometheus.CounterVec
	ReportCacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics on the given registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientbill_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clientbill_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		InvoicesGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientbill_invoices_generated_total",
				Help: "Invoices created, by source (manual, monthly)",
			},
			[]string{"source"},
		),
		InvoiceTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientbill_invoice_transitions_total",
				Help: "Invoice status transitions",
			},
			[]string{"from", "to"},
		),
		PaymentsConfirmedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientbill_payments_confirmed_total",
				Help: "Payment confirmations by mode and result",
			},
			[]string{"mode", "result"},
		),
		InstallmentsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clientbill_installments_created_total",
				Help: "Installments generated from payment plans",
			},
		),
		CostsMaterializedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientbill_costs_materialized_total",
				Help: "Cost subscriptions turned into expense transactions",
			},
			[]string{"result"},
		),

		AutomationStepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientbill_automation_steps_total",
				Help: "Automation steps executed",
			},
			[]string{"step", "status"},
		),
		AutomationStepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clientbill_automation_step_duration_seconds",
				Help:    "Automation step duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"step"},
		),

		NotificationsSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientbill_notifications_sent_total",
				Help: "Outbound notification deliveries",
			},
			[]string{"channel", "status"},
		),

		ReportCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientbill_report_cache_hits_total",
				Help: "Report cache hits by layer",
			},
			[]string{"layer"},
		),
		ReportCacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientbill_report_cache_misses_total",
				Help: "Report cache misses by layer",
			},
			[]string{"layer"},
		),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clientbill_db_connections_open",
			Help: "Number of open database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clientbill_db_connections_in_use",
			Help: "Number of database connections in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clientbill_db_connections_idle",
			Help: "Number of idle database connections",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.InvoicesGeneratedTotal,
		m.InvoiceTransitionsTotal,
		m.PaymentsConfirmedTotal,
		m.InstallmentsCreated,
		m.CostsMaterializedTotal,
		m.AutomationStepsTotal,
		m.AutomationStepDuration,
		m.NotificationsSentTotal,
		m.ReportCacheHitsTotal,
		m.ReportCacheMissesTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns the /metrics handler for the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordInvoiceGenerated counts a created invoice
func (m *Metrics) RecordInvoiceGenerated(source string) {
	if m == nil {
		return
	}
	m.InvoicesGeneratedTotal.WithLabelValues(source).Inc()
}

// RecordInvoiceTransition counts an invoice status change
func (m *Metrics) RecordInvoiceTransition(from, to string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.InvoiceTransitionsTotal.WithLabelValues(from, to).Add(float64(n))
}

// RecordPaymentConfirmed counts a payment confirmation
func (m *Metrics) RecordPaymentConfirmed(mode, result string) {
	if m == nil {
		return
	}
	m.PaymentsConfirmedTotal.WithLabelValues(mode, result).Inc()
}

// RecordInstallmentsCreated counts generated installments
func (m *Metrics) RecordInstallmentsCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.InstallmentsCreated.Add(float64(n))
}

// RecordCostsMaterialized counts materialization results
func (m *Metrics) RecordCostsMaterialized(created, skipped int) {
	if m == nil {
		return
	}
	m.CostsMaterializedTotal.WithLabelValues("created").Add(float64(created))
	m.CostsMaterializedTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordAutomationStep records the outcome and duration of one automation step
func (m *Metrics) RecordAutomationStep(step string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.AutomationStepsTotal.WithLabelValues(step, status).Inc()
	m.AutomationStepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordNotificationSent counts an outbound delivery attempt
func (m *Metrics) RecordNotificationSent(channel string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.NotificationsSentTotal.WithLabelValues(channel, status).Inc()
}

// RecordCacheLookup counts a report cache hit or miss
func (m *Metrics) RecordCacheLookup(layer string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.ReportCacheHitsTotal.WithLabelValues(layer).Inc()
		return
	}
	m.ReportCacheMissesTotal.WithLabelValues(layer).Inc()
}

// UpdateDBStats copies connection pool statistics into the gauges
func (m *Metrics) UpdateDBStats(db *sql.DB) {
	if m == nil || db == nil {
		return
	}
	stats := db.Stats()
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// HTTPMiddleware records request counts and durations labelled by the matched route template
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
