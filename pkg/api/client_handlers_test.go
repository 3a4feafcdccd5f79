package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/clientbill/pkg/clients"
)

// mockClientService is a mock implementation of clients.Service for testing
type mockClientService struct {
	clients.Service
	createClientFunc     func(orgID int64, in *clients.ClientInput) (*clients.Client, error)
	listClientsFunc      func(orgID int64, filter clients.ListFilter) ([]*clients.Client, error)
	deactivateClientFunc func(orgID, id int64) error
}

func (m *mockClientService) CreateClient(_ context.Context, orgID int64, in *clients.ClientInput) (*clients.Client, error) {
	return m.createClientFunc(orgID, in)
}

func (m *mockClientService) ListClients(_ context.Context, orgID int64, filter clients.ListFilter) ([]*clients.Client, error) {
	if m.listClientsFunc != nil {
		return m.listClientsFunc(orgID, filter)
	}
	return nil, nil
}

func (m *mockClientService) DeactivateClient(_ context.Context, orgID, id int64) error {
	return m.deactivateClientFunc(orgID, id)
}

func TestCreateClient(t *testing.T) {
	clientSvc := &mockClientService{
		createClientFunc: func(orgID int64, in *clients.ClientInput) (*clients.Client, error) {
			return &clients.Client{
				ID:            11,
				OrgID:         orgID,
				Name:          in.Name,
				PaymentMode:   in.PaymentMode,
				MonthlyFee:    in.MonthlyFee,
				DueDay:        in.DueDay,
				ContractStart: in.ContractStart,
				PaymentStatus: clients.PaymentStatusPending,
				Active:        true,
			}, nil
		},
	}
	router := newTestRouter(Services{Clients: clientSvc})

	body := `{"name":"Padaria Sol","payment_mode":"MONTHLY","monthly_fee":"1500.50","due_day":10,"contract_start":"2024-01-01T00:00:00Z"}`
	rec := doRequest(t, router, http.MethodPost, "/api/orgs/2/clients", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var client clients.Client
	decodeBody(t, rec, &client)
	assert.Equal(t, int64(2), client.OrgID)
	assert.True(t, client.MonthlyFee.Equal(decimal.RequireFromString("1500.5")))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), client.ContractStart)
	assert.Contains(t, rec.Body.String(), `"monthly_fee":"1500.5"`)
}

func TestCreateClient_ValidationError(t *testing.T) {
	clientSvc := &mockClientService{
		createClientFunc: func(orgID int64, in *clients.ClientInput) (*clients.Client, error) {
			return nil, clients.ErrInvalidDueDay
		},
	}
	router := newTestRouter(Services{Clients: clientSvc})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs/2/clients", `{"name":"X","payment_mode":"MONTHLY","due_day":40}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Dia de vencimento deve estar entre 1 e 31", errorMessage(t, rec))
}

func TestListClients_Filters(t *testing.T) {
	var got clients.ListFilter
	clientSvc := &mockClientService{
		listClientsFunc: func(orgID int64, filter clients.ListFilter) ([]*clients.Client, error) {
			got = filter
			return []*clients.Client{{ID: 1, Name: "Padaria Sol"}}, nil
		},
	}
	router := newTestRouter(Services{Clients: clientSvc})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs/2/clients?active=false&payment_mode=installments&q=sol&limit=500", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Active)
	assert.False(t, *got.Active)
	assert.Equal(t, clients.PaymentModeInstallments, got.PaymentMode)
	assert.Equal(t, "sol", got.Search)
	assert.Equal(t, maxPageSize, got.Limit)
}

func TestListClients_InvalidMode(t *testing.T) {
	router := newTestRouter(Services{Clients: &mockClientService{}})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs/2/clients?payment_mode=weekly", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Modo de pagamento inválido", errorMessage(t, rec))
}

func TestDeactivateClient(t *testing.T) {
	var gotOrg, gotID int64
	clientSvc := &mockClientService{
		deactivateClientFunc: func(orgID, id int64) error {
			gotOrg, gotID = orgID, id
			return nil
		},
	}
	router := newTestRouter(Services{Clients: clientSvc})

	rec := doRequest(t, router, http.MethodDelete, "/api/orgs/2/clients/9", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(2), gotOrg)
	assert.Equal(t, int64(9), gotID)
}

func TestDeactivateClient_OtherTenant(t *testing.T) {
	clientSvc := &mockClientService{
		deactivateClientFunc: func(orgID, id int64) error {
			return clients.ErrNotFound
		},
	}
	router := newTestRouter(Services{Clients: clientSvc})

	rec := doRequest(t, router, http.MethodDelete, "/api/orgs/3/clients/9", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
