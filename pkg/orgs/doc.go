// Package orgs manages tenants.
//
// An organization owns all clients, invoices, payments, costs and notifications. Only
// active organizations are served by the API and visited by the monthly automation run;
// suspended ones keep their data but are rejected by the tenant middleware.
//
//	svc := orgs.NewPostgresService(db)
//	org, err := svc.CreateOrganization(ctx, &orgs.CreateOrgRequest{Name: "Estúdio Norte"})
//	active, err := svc.ListOrganizations(ctx, orgs.OrgStatusActive)
package orgs
