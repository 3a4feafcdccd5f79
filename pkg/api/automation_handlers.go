package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/clientbill/pkg/automation"
	"github.com/platinummonkey/clientbill/pkg/httputil"
)

// AutomationRunner runs the financial jobs of one organization
type AutomationRunner interface {
	RunMonthly(ctx context.Context, orgID int64, now time.Time) *automation.Report
	RunOverdue(ctx context.Context, orgID int64, now time.Time) *automation.Report
}

// AutomationHandlers triggers automation runs on demand
type AutomationHandlers struct {
	runner AutomationRunner
	now    func() time.Time
}

// NewAutomationHandlers creates a new AutomationHandlers
func NewAutomationHandlers(runner AutomationRunner, now func() time.Time) *AutomationHandlers {
	if now == nil {
		now = time.Now
	}
	return &AutomationHandlers{runner: runner, now: now}
}

// RegisterRoutes registers automation routes on the tenant router
func (h *AutomationHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/automation/run", h.RunMonthly).Methods("POST")
	router.HandleFunc("/automation/overdue", h.RunOverdue).Methods("POST")
}

// RunMonthly runs every job. ?month=YYYY-MM replays a past month as of its last second, so the
// overdue checks also run as of the end of that month.
func (h *AutomationHandlers) RunMonthly(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	if r.URL.Query().Get("month") != "" {
		month, ok := monthParam(w, r, now)
		if !ok {
			return
		}
		if month.After(now) {
			httputil.WriteBadRequest(w, "Mês futuro não pode ser processado")
			return
		}
		if month.Year() != now.Year() || month.Month() != now.Month() {
			// last second of the past month
			now = month.AddDate(0, 1, 0).Add(-time.Second)
		}
	}

	h.writeReport(w, h.runner.RunMonthly(r.Context(), tenantID(r), now))
}

// RunOverdue flags overdue invoices and late installments
func (h *AutomationHandlers) RunOverdue(w http.ResponseWriter, r *http.Request) {
	h.writeReport(w, h.runner.RunOverdue(r.Context(), tenantID(r), h.now()))
}

// writeReport answers 200 when every step succeeded and 207 otherwise
func (h *AutomationHandlers) writeReport(w http.ResponseWriter, report *automation.Report) {
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusMultiStatus
	}
	httputil.WriteJSON(w, status, report)
}
