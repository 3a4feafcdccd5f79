package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/httputil"
)

// InvoiceHandlers handles invoice-related HTTP requests
type InvoiceHandlers struct {
	billingService billing.Service
	now            func() time.Time
}

// NewInvoiceHandlers creates a new InvoiceHandlers
func NewInvoiceHandlers(billingService billing.Service, now func() time.Time) *InvoiceHandlers {
	if now == nil {
		now = time.Now
	}
	return &InvoiceHandlers{billingService: billingService, now: now}
}

// RegisterRoutes registers invoice routes on the tenant router
func (h *InvoiceHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/invoices", h.CreateInvoice).Methods("POST")
	router.HandleFunc("/invoices", h.ListInvoices).Methods("GET")
	router.HandleFunc("/invoices/generate", h.GenerateMonthlyInvoices).Methods("POST")
	router.HandleFunc("/invoices/mark-overdue", h.MarkOverdueInvoices).Methods("POST")
	router.HandleFunc("/invoices/{id:[0-9]+}", h.GetInvoice).Methods("GET")
	router.HandleFunc("/invoices/{id:[0-9]+}/issue", h.IssueInvoice).Methods("POST")
	router.HandleFunc("/invoices/{id:[0-9]+}/cancel", h.CancelInvoice).Methods("POST")
	router.HandleFunc("/invoices/{id:[0-9]+}/pay", h.PayInvoice).Methods("POST")
	router.HandleFunc("/invoices/{id:[0-9]+}/payments", h.ListInvoicePayments).Methods("GET")
}

// CreateInvoice creates a manual invoice
func (h *InvoiceHandlers) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req billing.CreateInvoiceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	inv, err := h.billingService.CreateInvoice(r.Context(), tenantID(r), &req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, inv)
}

// ListInvoices lists invoices. Filters: client_id, status, limit, offset.
func (h *InvoiceHandlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	clientID, ok := int64Param(w, r, "client_id")
	if !ok {
		return
	}

	filter := billing.ListFilter{
		ClientID: clientID,
		Status:   billing.InvoiceStatus(strings.ToUpper(r.URL.Query().Get("status"))),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}

	list, err := h.billingService.ListInvoices(r.Context(), tenantID(r), filter)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*billing.Invoice{}
	}
	httputil.WriteSuccess(w, list)
}

// GetInvoice retrieves an invoice with its items
func (h *InvoiceHandlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	inv, err := h.billingService.GetInvoice(r.Context(), tenantID(r), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, inv)
}

// IssueInvoice moves a DRAFT invoice to OPEN
func (h *InvoiceHandlers) IssueInvoice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.billingService.IssueInvoice)
}

// CancelInvoice voids an invoice
func (h *InvoiceHandlers) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.billingService.CancelInvoice)
}

func (h *InvoiceHandlers) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, orgID, id int64) (*billing.Invoice, error)) {

	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	inv, err := fn(r.Context(), tenantID(r), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, inv)
}

// PayInvoice settles an invoice. An empty body pays the outstanding balance today.
func (h *InvoiceHandlers) PayInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req billing.PayRequest
	if !parseOptionalJSON(w, r, &req) {
		return
	}

	inv, err := h.billingService.MarkInvoicePaid(r.Context(), tenantID(r), id, &req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, inv)
}

// ListInvoicePayments lists the payments recorded against an invoice
func (h *InvoiceHandlers) ListInvoicePayments(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	list, err := h.billingService.ListInvoicePayments(r.Context(), tenantID(r), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*billing.Payment{}
	}
	httputil.WriteSuccess(w, list)
}

// GenerateMonthlyInvoices creates the invoices of ?month=YYYY-MM (default current month)
func (h *InvoiceHandlers) GenerateMonthlyInvoices(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r, h.now())
	if !ok {
		return
	}

	result, err := h.billingService.GenerateMonthlyInvoices(r.Context(), tenantID(r), month)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// MarkOverdueInvoices flags past due OPEN invoices
func (h *InvoiceHandlers) MarkOverdueInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := h.billingService.MarkOverdueInvoices(r.Context(), tenantID(r), h.now())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*billing.Invoice{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"count":    len(list),
		"invoices": list,
	})
}
