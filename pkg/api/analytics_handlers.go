package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/clientbill/pkg/analytics"
	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/httputil"
)

// AnalyticsHandlers handles dashboard report HTTP requests
type AnalyticsHandlers struct {
	analyticsService analytics.Service
	now              func() time.Time
}

// NewAnalyticsHandlers creates a new AnalyticsHandlers
func NewAnalyticsHandlers(analyticsService analytics.Service, now func() time.Time) *AnalyticsHandlers {
	if now == nil {
		now = time.Now
	}
	return &AnalyticsHandlers{analyticsService: analyticsService, now: now}
}

// RegisterRoutes registers analytics routes on the tenant router
func (h *AnalyticsHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/analytics/overview", h.GetOverview).Methods("GET")
	router.HandleFunc("/analytics/cash-flow", h.GetCashFlow).Methods("GET")
	router.HandleFunc("/analytics/revenue-by-client", h.GetRevenueByClient).Methods("GET")
	router.HandleFunc("/analytics/receivables-aging", h.GetReceivablesAging).Methods("GET")
	router.HandleFunc("/analytics/installments", h.GetInstallmentCollection).Methods("GET")
}

// GetOverview returns the month-over-month dashboard
func (h *AnalyticsHandlers) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.analyticsService.Overview(r.Context(), tenantID(r), h.now())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, overview)
}

// GetCashFlow returns ?months= months of income and expense (default 6)
func (h *AnalyticsHandlers) GetCashFlow(w http.ResponseWriter, r *http.Request) {
	months, err := httputil.ParseQueryInt(r, "months", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	flow, err := h.analyticsService.CashFlow(r.Context(), tenantID(r), months, h.now())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, flow)
}

// GetRevenueByClient ranks clients by income in [from, to). The range defaults to the current year.
func (h *AnalyticsHandlers) GetRevenueByClient(w http.ResponseWriter, r *http.Request) {
	from, ok := dateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := dateParam(w, r, "to")
	if !ok {
		return
	}
	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	now := h.now()
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	if from != nil {
		start = *from
	}
	end := billing.MonthStart(now).AddDate(0, 1, 0)
	if to != nil {
		end = *to
	}
	if !start.Before(end) {
		httputil.WriteBadRequest(w, "Período inválido")
		return
	}

	result, err := h.analyticsService.RevenueByClient(r.Context(), tenantID(r), start, end, limit)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// GetReceivablesAging returns open balances bucketed by days past due
func (h *AnalyticsHandlers) GetReceivablesAging(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyticsService.ReceivablesAging(r.Context(), tenantID(r), h.now())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// GetInstallmentCollection returns installment totals per status
func (h *AnalyticsHandlers) GetInstallmentCollection(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyticsService.InstallmentCollection(r.Context(), tenantID(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, report)
}
