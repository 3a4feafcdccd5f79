package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/clientbill/pkg/orgs"
)

func TestCreateOrganization(t *testing.T) {
	var got *orgs.CreateOrgRequest
	orgSvc := &mockOrgService{
		createOrganizationFunc: func(req *orgs.CreateOrgRequest) (*orgs.Organization, error) {
			got = req
			return &orgs.Organization{ID: 7, Name: req.Name, Slug: "estudio-norte", Status: orgs.OrgStatusActive}, nil
		},
	}
	router := newTestRouter(Services{Orgs: orgSvc})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs", map[string]string{"name": "Estúdio Norte"})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Estúdio Norte", got.Name)
	var org orgs.Organization
	decodeBody(t, rec, &org)
	assert.Equal(t, int64(7), org.ID)
	assert.Equal(t, orgs.OrgStatusActive, org.Status)
}

func TestCreateOrganization_UnknownField(t *testing.T) {
	router := newTestRouter(Services{})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs", `{"name":"x","plan":"gold"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrganization_Conflict(t *testing.T) {
	orgSvc := &mockOrgService{
		createOrganizationFunc: func(req *orgs.CreateOrgRequest) (*orgs.Organization, error) {
			return nil, orgs.ErrSlugTaken
		},
	}
	router := newTestRouter(Services{Orgs: orgSvc})

	rec := doRequest(t, router, http.MethodPost, "/api/orgs", map[string]string{"name": "Norte", "slug": "norte"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Slug já está em uso", errorMessage(t, rec))
}

func TestListOrganizations_InvalidStatus(t *testing.T) {
	router := newTestRouter(Services{})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs?status=deleted", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrganizations_Empty(t *testing.T) {
	var gotStatus orgs.OrgStatus
	orgSvc := &mockOrgService{
		listOrganizationsFunc: func(status orgs.OrgStatus) ([]*orgs.Organization, error) {
			gotStatus = status
			return nil, nil
		},
	}
	router := newTestRouter(Services{Orgs: orgSvc})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs?status=suspended", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orgs.OrgStatusSuspended, gotStatus)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpdateOrganization_ReactivatesSuspended(t *testing.T) {
	var got *orgs.UpdateOrgRequest
	orgSvc := &mockOrgService{
		getOrganizationFunc: func(id int64) (*orgs.Organization, error) {
			return &orgs.Organization{ID: id, Status: orgs.OrgStatusSuspended}, nil
		},
		updateOrganizationFunc: func(id int64, req *orgs.UpdateOrgRequest) (*orgs.Organization, error) {
			got = req
			return &orgs.Organization{ID: id, Status: *req.Status}, nil
		},
	}
	router := newTestRouter(Services{Orgs: orgSvc})

	rec := doRequest(t, router, http.MethodPut, "/api/orgs/5", map[string]string{"status": "active"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Status)
	assert.Equal(t, orgs.OrgStatusActive, *got.Status)
}

func TestGetOrganization_NotFound(t *testing.T) {
	orgSvc := &mockOrgService{
		getOrganizationFunc: func(id int64) (*orgs.Organization, error) {
			return nil, orgs.ErrNotFound
		},
	}
	router := newTestRouter(Services{Orgs: orgSvc})

	rec := doRequest(t, router, http.MethodGet, "/api/orgs/404", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
