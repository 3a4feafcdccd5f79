package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/clientbill/pkg/costs"
	"github.com/platinummonkey/clientbill/pkg/httputil"
)

// CostHandlers handles cost item, subscription and materialization HTTP requests
type CostHandlers struct {
	costService costs.Service
	now         func() time.Time
}

// NewCostHandlers creates a new CostHandlers
func NewCostHandlers(costService costs.Service, now func() time.Time) *CostHandlers {
	if now == nil {
		now = time.Now
	}
	return &CostHandlers{costService: costService, now: now}
}

// RegisterRoutes registers cost routes on the tenant router
func (h *CostHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/cost-items", h.CreateCostItem).Methods("POST")
	router.HandleFunc("/cost-items", h.ListCostItems).Methods("GET")
	router.HandleFunc("/cost-items/{id:[0-9]+}", h.GetCostItem).Methods("GET")
	router.HandleFunc("/cost-items/{id:[0-9]+}", h.UpdateCostItem).Methods("PUT")
	router.HandleFunc("/cost-items/{id:[0-9]+}", h.DeactivateCostItem).Methods("DELETE")

	router.HandleFunc("/cost-subscriptions", h.CreateSubscription).Methods("POST")
	router.HandleFunc("/cost-subscriptions", h.ListSubscriptions).Methods("GET")
	router.HandleFunc("/cost-subscriptions/{id:[0-9]+}", h.DeactivateSubscription).Methods("DELETE")

	router.HandleFunc("/costs/materialize", h.MaterializeMonth).Methods("POST")
	router.HandleFunc("/clients/{id:[0-9]+}/costs", h.ClientCostSummary).Methods("GET")
}

// CreateCostItem creates a cost item
func (h *CostHandlers) CreateCostItem(w http.ResponseWriter, r *http.Request) {
	var in costs.CostItemInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	item, err := h.costService.CreateCostItem(r.Context(), tenantID(r), &in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, item)
}

// ListCostItems lists cost items; ?active=true hides inactive ones
func (h *CostHandlers) ListCostItems(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := httputil.ParseQueryBool(r, "active", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	list, err := h.costService.ListCostItems(r.Context(), tenantID(r), activeOnly)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*costs.CostItem{}
	}
	httputil.WriteSuccess(w, list)
}

// GetCostItem retrieves a cost item
func (h *CostHandlers) GetCostItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	item, err := h.costService.GetCostItem(r.Context(), tenantID(r), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, item)
}

// UpdateCostItem replaces a cost item
func (h *CostHandlers) UpdateCostItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in costs.CostItemInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	item, err := h.costService.UpdateCostItem(r.Context(), tenantID(r), id, &in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, item)
}

// DeactivateCostItem deactivates a cost item
func (h *CostHandlers) DeactivateCostItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.costService.DeactivateCostItem(r.Context(), tenantID(r), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// CreateSubscription subscribes a client to a cost item
func (h *CostHandlers) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var in costs.SubscriptionInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	sub, err := h.costService.CreateSubscription(r.Context(), tenantID(r), &in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, sub)
}

// ListSubscriptions lists subscriptions, optionally of one ?client_id=
func (h *CostHandlers) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	clientID, ok := int64Param(w, r, "client_id")
	if !ok {
		return
	}

	list, err := h.costService.ListSubscriptions(r.Context(), tenantID(r), clientID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*costs.Subscription{}
	}
	httputil.WriteSuccess(w, list)
}

// DeactivateSubscription ends a subscription
func (h *CostHandlers) DeactivateSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.costService.DeactivateSubscription(r.Context(), tenantID(r), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// MaterializeMonth books the recurring costs of ?month=YYYY-MM as expenses
func (h *CostHandlers) MaterializeMonth(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r, h.now())
	if !ok {
		return
	}

	result, err := h.costService.MaterializeMonth(r.Context(), tenantID(r), month)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

// ClientCostSummary returns the recurring cost of a client in ?month=YYYY-MM
func (h *CostHandlers) ClientCostSummary(w http.ResponseWriter, r *http.Request) {
	clientID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	month, ok := monthParam(w, r, h.now())
	if !ok {
		return
	}

	summary, err := h.costService.ClientCostSummary(r.Context(), tenantID(r), clientID, month)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, summary)
}
