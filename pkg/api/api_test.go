package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/clientbill/pkg/orgs"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// mockOrgService is a mock implementation of orgs.Service for testing
type mockOrgService struct {
	createOrganizationFunc func(req *orgs.CreateOrgRequest) (*orgs.Organization, error)
	getOrganizationFunc    func(id int64) (*orgs.Organization, error)
	listOrganizationsFunc  func(status orgs.OrgStatus) ([]*orgs.Organization, error)
	updateOrganizationFunc func(id int64, req *orgs.UpdateOrgRequest) (*orgs.Organization, error)
}

func (m *mockOrgService) CreateOrganization(_ context.Context, req *orgs.CreateOrgRequest) (*orgs.Organization, error) {
	if m.createOrganizationFunc != nil {
		return m.createOrganizationFunc(req)
	}
	return &orgs.Organization{ID: 1, Name: req.Name, Status: orgs.OrgStatusActive}, nil
}

func (m *mockOrgService) GetOrganization(_ context.Context, id int64) (*orgs.Organization, error) {
	if m.getOrganizationFunc != nil {
		return m.getOrganizationFunc(id)
	}
	return &orgs.Organization{ID: id, Name: "Estúdio", Status: orgs.OrgStatusActive}, nil
}

func (m *mockOrgService) GetOrganizationBySlug(_ context.Context, slug string) (*orgs.Organization, error) {
	return &orgs.Organization{ID: 1, Slug: slug, Status: orgs.OrgStatusActive}, nil
}

func (m *mockOrgService) ListOrganizations(_ context.Context, status orgs.OrgStatus) ([]*orgs.Organization, error) {
	if m.listOrganizationsFunc != nil {
		return m.listOrganizationsFunc(status)
	}
	return nil, nil
}

func (m *mockOrgService) UpdateOrganization(_ context.Context, id int64, req *orgs.UpdateOrgRequest) (*orgs.Organization, error) {
	if m.updateOrganizationFunc != nil {
		return m.updateOrganizationFunc(id, req)
	}
	return &orgs.Organization{ID: id, Status: orgs.OrgStatusActive}, nil
}

// newTestRouter builds the full router with an always-active org lookup unless services.Orgs is set
func newTestRouter(services Services) http.Handler {
	if services.Orgs == nil {
		services.Orgs = &mockOrgService{}
	}
	return NewRouter(services, RouterOptions{Now: fixedNow})
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &body)
	return body.Error
}
