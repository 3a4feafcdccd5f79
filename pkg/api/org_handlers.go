package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/clientbill/pkg/httputil"
	"github.com/platinummonkey/clientbill/pkg/orgs"
)

// OrgHandlers handles organization-related HTTP requests
type OrgHandlers struct {
	orgService orgs.Service
}

// NewOrgHandlers creates a new OrgHandlers
func NewOrgHandlers(orgService orgs.Service) *OrgHandlers {
	return &OrgHandlers{orgService: orgService}
}

// RegisterRoutes registers organization routes
func (h *OrgHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/orgs", h.CreateOrganization).Methods("POST")
	router.HandleFunc("/orgs", h.ListOrganizations).Methods("GET")
	router.HandleFunc("/orgs/{org_id:[0-9]+}", h.GetOrganization).Methods("GET")
	router.HandleFunc("/orgs/{org_id:[0-9]+}", h.UpdateOrganization).Methods("PUT")
}

// CreateOrganization creates a new organization
func (h *OrgHandlers) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req orgs.CreateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org, err := h.orgService.CreateOrganization(r.Context(), &req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, org)
}

// ListOrganizations lists organizations, optionally filtered by ?status=
func (h *OrgHandlers) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	status := orgs.OrgStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		httputil.WriteServiceError(w, r, orgs.ErrInvalidStatus)
		return
	}

	list, err := h.orgService.ListOrganizations(r.Context(), status)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*orgs.Organization{}
	}
	httputil.WriteSuccess(w, list)
}

// GetOrganization retrieves an organization
func (h *OrgHandlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
	if !ok {
		return
	}

	org, err := h.orgService.GetOrganization(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// UpdateOrganization updates display name, status or settings. Suspended orgs can be reactivated here.
func (h *OrgHandlers) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
	if !ok {
		return
	}

	var req orgs.UpdateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org, err := h.orgService.UpdateOrganization(r.Context(), id, &req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, org)
}
