package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/httputil"
	"github.com/platinummonkey/clientbill/pkg/payments"
)

// PaymentHandlers handles monthly payment and installment HTTP requests
type PaymentHandlers struct {
	paymentService payments.Service
	now            func() time.Time
}

// NewPaymentHandlers creates a new PaymentHandlers
func NewPaymentHandlers(paymentService payments.Service, now func() time.Time) *PaymentHandlers {
	if now == nil {
		now = time.Now
	}
	return &PaymentHandlers{paymentService: paymentService, now: now}
}

// RegisterRoutes registers payment routes on the tenant router
func (h *PaymentHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/payments/monthly", h.ConfirmMonthlyPayment).Methods("POST")
	router.HandleFunc("/installments/generate", h.GenerateAllInstallments).Methods("POST")
	router.HandleFunc("/installments/mark-late", h.MarkLateInstallments).Methods("POST")
	router.HandleFunc("/installments/{id:[0-9]+}/confirm", h.ConfirmInstallment).Methods("POST")
	router.HandleFunc("/clients/{id:[0-9]+}/installments", h.ListInstallments).Methods("GET")
	router.HandleFunc("/clients/{id:[0-9]+}/installments/generate", h.GenerateInstallments).Methods("POST")
	router.HandleFunc("/clients/{id:[0-9]+}/payments", h.ListPayments).Methods("GET")
}

// monthlyPaymentBody carries the month as YYYY-MM
type monthlyPaymentBody struct {
	ClientID int64           `json:"client_id"`
	Month    string          `json:"month"`
	Amount   decimal.Decimal `json:"amount"`
	Method   string          `json:"method"`
	PaidAt   *time.Time      `json:"paid_at,omitempty"`
}

// ConfirmMonthlyPayment records a payment against a client's monthly invoice
func (h *PaymentHandlers) ConfirmMonthlyPayment(w http.ResponseWriter, r *http.Request) {
	var body monthlyPaymentBody
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	req := &payments.ConfirmMonthlyRequest{
		ClientID: body.ClientID,
		Amount:   body.Amount,
		Method:   body.Method,
		PaidAt:   body.PaidAt,
	}
	if body.Month != "" {
		month, err := httputil.ParseMonth(body.Month)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		req.Month = month
	}

	result, err := h.paymentService.ConfirmMonthlyPayment(r.Context(), tenantID(r), req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// GenerateInstallments creates the next installments of one client
func (h *PaymentHandlers) GenerateInstallments(w http.ResponseWriter, r *http.Request) {
	clientID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	result, err := h.paymentService.GenerateInstallments(r.Context(), tenantID(r), clientID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// GenerateAllInstallments creates the next installments of every installment client
func (h *PaymentHandlers) GenerateAllInstallments(w http.ResponseWriter, r *http.Request) {
	result, err := h.paymentService.GenerateAllInstallments(r.Context(), tenantID(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// ConfirmInstallment confirms a PENDING or LATE installment
func (h *PaymentHandlers) ConfirmInstallment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req payments.ConfirmInstallmentRequest
	if !parseOptionalJSON(w, r, &req) {
		return
	}

	inst, err := h.paymentService.ConfirmInstallment(r.Context(), tenantID(r), id, &req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, inst)
}

// MarkLateInstallments flags past due PENDING installments
func (h *PaymentHandlers) MarkLateInstallments(w http.ResponseWriter, r *http.Request) {
	result, err := h.paymentService.MarkLateInstallments(r.Context(), tenantID(r), h.now())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// ListInstallments lists the installments of a client
func (h *PaymentHandlers) ListInstallments(w http.ResponseWriter, r *http.Request) {
	clientID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	list, err := h.paymentService.ListInstallments(r.Context(), tenantID(r), clientID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*payments.Installment{}
	}
	httputil.WriteSuccess(w, list)
}

// ListPayments lists every payment received from a client
func (h *PaymentHandlers) ListPayments(w http.ResponseWriter, r *http.Request) {
	clientID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	list, err := h.paymentService.ListPayments(r.Context(), tenantID(r), clientID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*billing.Payment{}
	}
	httputil.WriteSuccess(w, list)
}
