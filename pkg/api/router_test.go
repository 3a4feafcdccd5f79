package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/clientbill/pkg/clients"
	"github.com/platinummonkey/clientbill/pkg/middleware"
	"github.com/platinummonkey/clientbill/pkg/observability"
	"github.com/platinummonkey/clientbill/pkg/orgs"
)

func TestTenantMiddleware_UnknownOrg(t *testing.T) {
	orgSvc := &mockOrgService{
		getOrganizationFunc: func(id int64) (*orgs.Organization, error) {
			return nil, orgs.ErrNotFound
		},
	}
	router := newTestRouter(Services{Orgs: orgSvc, Clients: &mockClientService{}})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs/99/clients", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Organização não encontrada", errorMessage(t, rec))
}

func TestTenantMiddleware_SuspendedOrg(t *testing.T) {
	orgSvc := &mockOrgService{
		getOrganizationFunc: func(id int64) (*orgs.Organization, error) {
			return &orgs.Organization{ID: id, Status: orgs.OrgStatusSuspended}, nil
		},
	}
	called := false
	clientSvc := &mockClientService{
		listClientsFunc: func(orgID int64, filter clients.ListFilter) ([]*clients.Client, error) {
			called = true
			return nil, nil
		},
	}
	router := newTestRouter(Services{Orgs: orgSvc, Clients: clientSvc})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs/3/clients", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Organização suspensa", errorMessage(t, rec))
	assert.False(t, called)
}

func TestTenantMiddleware_LookupFailure(t *testing.T) {
	orgSvc := &mockOrgService{
		getOrganizationFunc: func(id int64) (*orgs.Organization, error) {
			return nil, errors.New("connection refused")
		},
	}
	router := newTestRouter(Services{Orgs: orgSvc, Clients: &mockClientService{}})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs/3/clients", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Erro interno do servidor", errorMessage(t, rec))
}

func TestTenantMiddleware_ScopesRequests(t *testing.T) {
	var gotOrg int64
	clientSvc := &mockClientService{
		listClientsFunc: func(orgID int64, filter clients.ListFilter) ([]*clients.Client, error) {
			gotOrg = orgID
			return nil, nil
		},
	}
	router := newTestRouter(Services{Clients: clientSvc})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs/42/clients", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), gotOrg)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	router := NewRouter(Services{Orgs: &mockOrgService{}}, RouterOptions{Metrics: metrics, Now: fixedNow})

	doRequest(t, router, http.MethodGet, "/api/orgs", nil)
	rec := doRequest(t, router, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `clientbill_http_requests_total{method="GET",route="/api/orgs",status="200"} 1`)
}

func TestRouter_AutomationOptional(t *testing.T) {
	router := newTestRouter(Services{})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs/1/automation/run", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_RateLimitPerOrg(t *testing.T) {
	limiter := middleware.NewMemoryLimiter(middleware.RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})
	router := NewRouter(Services{Orgs: &mockOrgService{}, Clients: &mockClientService{}},
		RouterOptions{RateLimiter: limiter, Now: fixedNow})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs/1/clients", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/orgs/1/clients", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/orgs/2/clients", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "each organization has its own quota")

	rec = doRequest(t, router, http.MethodGet, "/api/orgs", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "organization management is not tenant limited")
}
