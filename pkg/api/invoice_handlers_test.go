package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/clientbill/pkg/billing"
)

// mockBillingService is a mock implementation of billing.Service for testing
type mockBillingService struct {
	billing.Service
	listInvoicesFunc func(orgID int64, filter billing.ListFilter) ([]*billing.Invoice, error)
	issueFunc        func(orgID, id int64) (*billing.Invoice, error)
	payFunc          func(orgID, id int64, req *billing.PayRequest) (*billing.Invoice, error)
	markOverdueFunc  func(orgID int64, now time.Time) ([]*billing.Invoice, error)
	generateFunc     func(orgID int64, month time.Time) (*billing.GenerationResult, error)
}

func (m *mockBillingService) ListInvoices(_ context.Context, orgID int64, filter billing.ListFilter) ([]*billing.Invoice, error) {
	return m.listInvoicesFunc(orgID, filter)
}

func (m *mockBillingService) IssueInvoice(_ context.Context, orgID, id int64) (*billing.Invoice, error) {
	return m.issueFunc(orgID, id)
}

func (m *mockBillingService) MarkInvoicePaid(_ context.Context, orgID, id int64, req *billing.PayRequest) (*billing.Invoice, error) {
	return m.payFunc(orgID, id, req)
}

func (m *mockBillingService) MarkOverdueInvoices(_ context.Context, orgID int64, now time.Time) ([]*billing.Invoice, error) {
	return m.markOverdueFunc(orgID, now)
}

func (m *mockBillingService) GenerateMonthlyInvoices(_ context.Context, orgID int64, month time.Time) (*billing.GenerationResult, error) {
	return m.generateFunc(orgID, month)
}

func TestListInvoices_Filters(t *testing.T) {
	var got billing.ListFilter
	billingSvc := &mockBillingService{
		listInvoicesFunc: func(orgID int64, filter billing.ListFilter) ([]*billing.Invoice, error) {
			got = filter
			return nil, nil
		},
	}
	router := newTestRouter(Services{Billing: billingSvc})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs/1/invoices?client_id=4&status=open&offset=10", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	require.NotNil(t, got.ClientID)
	assert.Equal(t, int64(4), *got.ClientID)
	assert.Equal(t, billing.InvoiceStatusOpen, got.Status)
	assert.Equal(t, defaultPageSize, got.Limit)
	assert.Equal(t, 10, got.Offset)
}

func TestListInvoices_BadClientID(t *testing.T) {
	router := newTestRouter(Services{Billing: &mockBillingService{}})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs/1/invoices?client_id=abc", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssueInvoice_Conflict(t *testing.T) {
	billingSvc := &mockBillingService{
		issueFunc: func(orgID, id int64) (*billing.Invoice, error) {
			return nil, billing.ErrNotDraft
		},
	}
	router := newTestRouter(Services{Billing: billingSvc})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs/1/invoices/3/issue", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Apenas faturas em rascunho podem ser emitidas", errorMessage(t, rec))
}

func TestPayInvoice_EmptyBody(t *testing.T) {
	var got *billing.PayRequest
	billingSvc := &mockBillingService{
		payFunc: func(orgID, id int64, req *billing.PayRequest) (*billing.Invoice, error) {
			got = req
			return &billing.Invoice{ID: id, Status: billing.InvoiceStatusPaid}, nil
		},
	}
	router := newTestRouter(Services{Billing: billingSvc})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs/1/invoices/3/pay", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, got)
	assert.Nil(t, got.Amount)
}

func TestPayInvoice_ExplicitAmount(t *testing.T) {
	var got *billing.PayRequest
	billingSvc := &mockBillingService{
		payFunc: func(orgID, id int64, req *billing.PayRequest) (*billing.Invoice, error) {
			got = req
			return &billing.Invoice{ID: id, Status: billing.InvoiceStatusPaid}, nil
		},
	}
	router := newTestRouter(Services{Billing: billingSvc})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs/1/invoices/3/pay", `{"amount":"250.00","method":"PIX"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Amount)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "PIX", got.Method)
}

func TestPayInvoice_Underpaid(t *testing.T) {
	billingSvc := &mockBillingService{
		payFunc: func(orgID, id int64, req *billing.PayRequest) (*billing.Invoice, error) {
			return nil, billing.ErrUnderpaid
		},
	}
	router := newTestRouter(Services{Billing: billingSvc})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs/1/invoices/3/pay", `{"amount":"1.00"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Valor insuficiente para quitar a fatura", errorMessage(t, rec))
}

func TestPayInvoice_MalformedBody(t *testing.T) {
	router := newTestRouter(Services{Billing: &mockBillingService{}})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs/1/invoices/3/pay", `{"amount":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateMonthlyInvoices_MonthParam(t *testing.T) {
	var gotMonth time.Time
	billingSvc := &mockBillingService{
		generateFunc: func(orgID int64, month time.Time) (*billing.GenerationResult, error) {
			gotMonth = month
			return &billing.GenerationResult{Month: "2024-02", Created: 3, Skipped: 1}, nil
		},
	}
	router := newTestRouter(Services{Billing: billingSvc})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs/1/invoices/generate?month=2024-02", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), gotMonth)
	assert.JSONEq(t, `{"month":"2024-02","created":3,"skipped":1}`, rec.Body.String())
}

func TestGenerateMonthlyInvoices_DefaultsToCurrentMonth(t *testing.T) {
	var gotMonth time.Time
	billingSvc := &mockBillingService{
		generateFunc: func(orgID int64, month time.Time) (*billing.GenerationResult, error) {
			gotMonth = month
			return &billing.GenerationResult{}, nil
		},
	}
	router := newTestRouter(Services{Billing: billingSvc})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs/1/invoices/generate", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), gotMonth)
}

func TestGenerateMonthlyInvoices_BadMonth(t *testing.T) {
	router := newTestRouter(Services{Billing: &mockBillingService{}})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs/1/invoices/generate?month=03/2024", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkOverdueInvoices(t *testing.T) {
	var gotNow time.Time
	billingSvc := &mockBillingService{
		markOverdueFunc: func(orgID int64, now time.Time) ([]*billing.Invoice, error) {
			gotNow = now
			return []*billing.Invoice{{ID: 1, Status: billing.InvoiceStatusOverdue}}, nil
		},
	}
	router := newTestRouter(Services{Billing: billingSvc})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs/1/invoices/mark-overdue", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testNow, gotNow)
	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, 1, body.Count)
}
