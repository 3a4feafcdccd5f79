// Package api exposes the clientbill services as a JSON HTTP API.
//
// # Layout
//
// Organization management lives at /api/orgs. Every other resource is tenant
// scoped under /api/orgs/{org_id}; TenantMiddleware resolves the organization,
// rejects unknown ids with 404 and suspended organizations with 403, and stores
// the tenant in the request context.
//
// Each domain has its own handler type with a RegisterRoutes method:
//
//	OrgHandlers           /orgs
//	ClientHandlers        /clients
//	InvoiceHandlers       /invoices
//	PaymentHandlers       /payments, /installments
//	CostHandlers          /cost-items, /cost-subscriptions, /costs
//	FinanceHandlers       /transactions
//	NotificationHandlers  /notifications
//	AnalyticsHandlers     /analytics
//	DashboardHandlers     /dashboard
//	AutomationHandlers    /automation
//
// # Errors
//
// Errors are returned as {"error": "<message>"}. Domain errors keep their
// message and map to 404, 400 or 409 by kind; anything else is logged and
// answered with 500.
package api
