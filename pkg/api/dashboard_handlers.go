package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/dashboard"
	"github.com/platinummonkey/clientbill/pkg/httputil"
)

// DashboardHandlers handles dashboard event and note HTTP requests
type DashboardHandlers struct {
	dashboardService dashboard.Service
	now              func() time.Time
}

// NewDashboardHandlers creates a new DashboardHandlers
func NewDashboardHandlers(dashboardService dashboard.Service, now func() time.Time) *DashboardHandlers {
	if now == nil {
		now = time.Now
	}
	return &DashboardHandlers{dashboardService: dashboardService, now: now}
}

// RegisterRoutes registers dashboard routes on the tenant router
func (h *DashboardHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/dashboard/events", h.CreateEvent).Methods("POST")
	router.HandleFunc("/dashboard/events", h.ListEvents).Methods("GET")
	router.HandleFunc("/dashboard/events/{id:[0-9]+}", h.GetEvent).Methods("GET")
	router.HandleFunc("/dashboard/events/{id:[0-9]+}", h.UpdateEvent).Methods("PUT")
	router.HandleFunc("/dashboard/events/{id:[0-9]+}", h.DeleteEvent).Methods("DELETE")

	router.HandleFunc("/dashboard/notes", h.CreateNote).Methods("POST")
	router.HandleFunc("/dashboard/notes", h.ListNotes).Methods("GET")
	router.HandleFunc("/dashboard/notes/{id:[0-9]+}", h.UpdateNote).Methods("PUT")
	router.HandleFunc("/dashboard/notes/{id:[0-9]+}", h.DeleteNote).Methods("DELETE")
}

// CreateEvent creates a calendar event
func (h *DashboardHandlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in dashboard.EventInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	event, err := h.dashboardService.CreateEvent(r.Context(), tenantID(r), &in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, event)
}

// ListEvents lists the events overlapping [from, to). The range defaults to the current month.
func (h *DashboardHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	from, ok := dateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := dateParam(w, r, "to")
	if !ok {
		return
	}

	start := billing.MonthStart(h.now())
	if from != nil {
		start = *from
	}
	end := start.AddDate(0, 1, 0)
	if to != nil {
		end = *to
	}

	events, err := h.dashboardService.ListEvents(r.Context(), tenantID(r), start, end)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, events)
}

// GetEvent retrieves an event
func (h *DashboardHandlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	event, err := h.dashboardService.GetEvent(r.Context(), tenantID(r), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, event)
}

// UpdateEvent replaces an event
func (h *DashboardHandlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in dashboard.EventInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	event, err := h.dashboardService.UpdateEvent(r.Context(), tenantID(r), id, &in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, event)
}

// DeleteEvent removes an event
func (h *DashboardHandlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.dashboardService.DeleteEvent(r.Context(), tenantID(r), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// CreateNote creates a sticky note
func (h *DashboardHandlers) CreateNote(w http.ResponseWriter, r *http.Request) {
	var in dashboard.NoteInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	note, err := h.dashboardService.CreateNote(r.Context(), tenantID(r), &in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, note)
}

// ListNotes lists notes, pinned first
func (h *DashboardHandlers) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.dashboardService.ListNotes(r.Context(), tenantID(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, notes)
}

// UpdateNote replaces a note
func (h *DashboardHandlers) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in dashboard.NoteInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	note, err := h.dashboardService.UpdateNote(r.Context(), tenantID(r), id, &in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, note)
}

// DeleteNote removes a note
func (h *DashboardHandlers) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.dashboardService.DeleteNote(r.Context(), tenantID(r), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
