package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/clientbill/pkg/analytics"
	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/clients"
	"github.com/platinummonkey/clientbill/pkg/costs"
	"github.com/platinummonkey/clientbill/pkg/dashboard"
	"github.com/platinummonkey/clientbill/pkg/finance"
	"github.com/platinummonkey/clientbill/pkg/middleware"
	"github.com/platinummonkey/clientbill/pkg/notifications"
	"github.com/platinummonkey/clientbill/pkg/observability"
	"github.com/platinummonkey/clientbill/pkg/orgs"
	"github.com/platinummonkey/clientbill/pkg/payments"
)

// Services bundles the domain services served by the API
type Services struct {
	Orgs          orgs.Service
	Clients       clients.Service
	Billing       billing.Service
	Payments      payments.Service
	Costs         costs.Service
	Finance       finance.Service
	Notifications notifications.Service
	Analytics     analytics.Service
	Dashboard     dashboard.Service
	Automation    AutomationRunner
}

// RouterOptions configures the optional parts of the router
type RouterOptions struct {
	Health  *observability.HealthChecker
	Metrics *observability.Metrics
	// RateLimiter limits tenant requests per organization; nil disables limiting
	RateLimiter middleware.Limiter
	// Now overrides the clock; defaults to time.Now
	Now func() time.Time
}

// NewRouter builds the HTTP router. Organization routes are registered before
// the tenant subrouter so /api/orgs/{org_id} reaches OrgHandlers.
func NewRouter(services Services, opts RouterOptions) *mux.Router {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	router := mux.NewRouter()
	router.Use(opts.Metrics.HTTPMiddleware)

	if opts.Health != nil {
		opts.Health.RegisterRoutes(router)
	}
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	apiRouter := router.PathPrefix("/api").Subrouter()
	NewOrgHandlers(services.Orgs).RegisterRoutes(apiRouter)

	tenant := apiRouter.PathPrefix("/orgs/{org_id:[0-9]+}").Subrouter()
	tenant.Use(TenantMiddleware(services.Orgs))
	if opts.RateLimiter != nil {
		tenant.Use(middleware.RateLimit(opts.RateLimiter))
	}

	NewClientHandlers(services.Clients).RegisterRoutes(tenant)
	NewInvoiceHandlers(services.Billing, now).RegisterRoutes(tenant)
	NewPaymentHandlers(services.Payments, now).RegisterRoutes(tenant)
	NewCostHandlers(services.Costs, now).RegisterRoutes(tenant)
	NewFinanceHandlers(services.Finance, now).RegisterRoutes(tenant)
	NewNotificationHandlers(services.Notifications).RegisterRoutes(tenant)
	NewAnalyticsHandlers(services.Analytics, now).RegisterRoutes(tenant)
	NewDashboardHandlers(services.Dashboard, now).RegisterRoutes(tenant)
	if services.Automation != nil {
		NewAutomationHandlers(services.Automation, now).RegisterRoutes(tenant)
	}

	return router
}
