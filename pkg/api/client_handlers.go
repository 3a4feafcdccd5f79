package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/clientbill/pkg/clients"
	"github.com/platinummonkey/clientbill/pkg/httputil"
)

// ClientHandlers handles client-related HTTP requests
type ClientHandlers struct {
	clientService clients.Service
}

// NewClientHandlers creates a new ClientHandlers
func NewClientHandlers(clientService clients.Service) *ClientHandlers {
	return &ClientHandlers{clientService: clientService}
}

// RegisterRoutes registers client routes on the tenant router
func (h *ClientHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/clients", h.CreateClient).Methods("POST")
	router.HandleFunc("/clients", h.ListClients).Methods("GET")
	router.HandleFunc("/clients/{id:[0-9]+}", h.GetClient).Methods("GET")
	router.HandleFunc("/clients/{id:[0-9]+}", h.UpdateClient).Methods("PUT")
	router.HandleFunc("/clients/{id:[0-9]+}", h.DeactivateClient).Methods("DELETE")
}

// CreateClient creates a client
func (h *ClientHandlers) CreateClient(w http.ResponseWriter, r *http.Request) {
	var in clients.ClientInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	client, err := h.clientService.CreateClient(r.Context(), tenantID(r), &in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, client)
}

// ListClients lists clients. Filters: active, payment_mode, q, limit, offset.
func (h *ClientHandlers) ListClients(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}

	filter := clients.ListFilter{
		PaymentMode: clients.PaymentMode(strings.ToUpper(r.URL.Query().Get("payment_mode"))),
		Search:      r.URL.Query().Get("q"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	if filter.PaymentMode != "" && !filter.PaymentMode.Valid() {
		httputil.WriteServiceError(w, r, clients.ErrInvalidMode)
		return
	}
	if r.URL.Query().Get("active") != "" {
		active, err := httputil.ParseQueryBool(r, "active", true)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		filter.Active = &active
	}

	list, err := h.clientService.ListClients(r.Context(), tenantID(r), filter)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*clients.Client{}
	}
	httputil.WriteSuccess(w, list)
}

// GetClient retrieves a client
func (h *ClientHandlers) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	client, err := h.clientService.GetClient(r.Context(), tenantID(r), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, client)
}

// UpdateClient replaces the writable fields of a client
func (h *ClientHandlers) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in clients.ClientInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	client, err := h.clientService.UpdateClient(r.Context(), tenantID(r), id, &in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, client)
}

// DeactivateClient deactivates a client. History is kept.
func (h *ClientHandlers) DeactivateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.clientService.DeactivateClient(r.Context(), tenantID(r), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
