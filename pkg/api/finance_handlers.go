package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/finance"
	"github.com/platinummonkey/clientbill/pkg/httputil"
)

// FinanceHandlers handles ledger HTTP requests
type FinanceHandlers struct {
	financeService finance.Service
	now            func() time.Time
}

// NewFinanceHandlers creates a new FinanceHandlers
func NewFinanceHandlers(financeService finance.Service, now func() time.Time) *FinanceHandlers {
	if now == nil {
		now = time.Now
	}
	return &FinanceHandlers{financeService: financeService, now: now}
}

// RegisterRoutes registers ledger routes on the tenant router
func (h *FinanceHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	router.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	router.HandleFunc("/transactions/summary", h.Summary).Methods("GET")
	router.HandleFunc("/transactions/{id:[0-9]+}", h.GetTransaction).Methods("GET")
	router.HandleFunc("/transactions/{id:[0-9]+}", h.DeleteTransaction).Methods("DELETE")
}

// CreateTransaction records a manual ledger entry
func (h *FinanceHandlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req finance.CreateTransactionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	t, err := h.financeService.CreateTransaction(r.Context(), tenantID(r), &req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, t)
}

// ListTransactions lists ledger entries. Filters: type, category, client_id, from, to, limit, offset.
func (h *FinanceHandlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	clientID, ok := int64Param(w, r, "client_id")
	if !ok {
		return
	}
	from, ok := dateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := dateParam(w, r, "to")
	if !ok {
		return
	}

	filter := finance.ListFilter{
		Type:     finance.TransactionType(strings.ToUpper(r.URL.Query().Get("type"))),
		Category: r.URL.Query().Get("category"),
		ClientID: clientID,
		From:     from,
		To:       to,
		Limit:    page.Limit,
		Offset:   page.Offset,
	}

	list, err := h.financeService.ListTransactions(r.Context(), tenantID(r), filter)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*finance.Transaction{}
	}
	httputil.WriteSuccess(w, list)
}

// GetTransaction retrieves a ledger entry
func (h *FinanceHandlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	t, err := h.financeService.GetTransaction(r.Context(), tenantID(r), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, t)
}

// DeleteTransaction removes a manual ledger entry
func (h *FinanceHandlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.financeService.DeleteTransaction(r.Context(), tenantID(r), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// Summary totals the ledger over [from, to). Both default to the current month.
func (h *FinanceHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	from, ok := dateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := dateParam(w, r, "to")
	if !ok {
		return
	}

	start := billing.MonthStart(h.now())
	if from != nil {
		start = *from
	}
	end := start.AddDate(0, 1, 0)
	if to != nil {
		end = *to
	}

	summary, err := h.financeService.Summary(r.Context(), tenantID(r), start, end)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, summary)
}
