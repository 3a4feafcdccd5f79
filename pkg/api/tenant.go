package api

import (
	"context"
	"net/http"

	"github.com/platinummonkey/clientbill/pkg/contextkeys"
	"github.com/platinummonkey/clientbill/pkg/httputil"
	"github.com/platinummonkey/clientbill/pkg/orgs"
)

// OrgLookup resolves organizations for TenantMiddleware
type OrgLookup interface {
	GetOrganization(ctx context.Context, id int64) (*orgs.Organization, error)
}

// TenantMiddleware resolves {org_id} and rejects unknown or suspended organizations
func TenantMiddleware(lookup OrgLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
			if !ok {
				return
			}

			org, err := lookup.GetOrganization(r.Context(), orgID)
			if err != nil {
				httputil.WriteServiceError(w, r, err)
				return
			}
			if !org.IsActive() {
				httputil.WriteErrorMessage(w, http.StatusForbidden, "Organização suspensa")
				return
			}

			ctx := contextkeys.WithOrg(r.Context(), org)
			ctx = contextkeys.WithOrgID(ctx, org.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
