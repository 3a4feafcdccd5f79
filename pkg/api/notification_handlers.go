package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/clientbill/pkg/httputil"
	"github.com/platinummonkey/clientbill/pkg/notifications"
)

// NotificationHandlers handles in-app notification HTTP requests
type NotificationHandlers struct {
	notificationService notifications.Service
}

// NewNotificationHandlers creates a new NotificationHandlers
func NewNotificationHandlers(notificationService notifications.Service) *NotificationHandlers {
	return &NotificationHandlers{notificationService: notificationService}
}

// RegisterRoutes registers notification routes on the tenant router
func (h *NotificationHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/notifications", h.CreateNotification).Methods("POST")
	router.HandleFunc("/notifications", h.ListNotifications).Methods("GET")
	router.HandleFunc("/notifications/unread-count", h.UnreadCount).Methods("GET")
	router.HandleFunc("/notifications/read-all", h.MarkAllRead).Methods("POST")
	router.HandleFunc("/notifications/{id:[0-9]+}/read", h.MarkRead).Methods("POST")
}

// CreateNotification records a manual notification, optionally sent to the client
func (h *NotificationHandlers) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req notifications.CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	n, err := h.notificationService.Create(r.Context(), tenantID(r), &req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, n)
}

// ListNotifications lists notifications newest first; ?unread=true hides read ones
func (h *NotificationHandlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	unread, err := httputil.ParseQueryBool(r, "unread", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	list, err := h.notificationService.List(r.Context(), tenantID(r), notifications.ListFilter{
		UnreadOnly: unread,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*notifications.Notification{}
	}
	httputil.WriteSuccess(w, list)
}

// UnreadCount returns the number of unread notifications
func (h *NotificationHandlers) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationService.UnreadCount(r.Context(), tenantID(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]int{"unread": count})
}

// MarkRead marks one notification read
func (h *NotificationHandlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), tenantID(r), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// MarkAllRead marks every notification read
func (h *NotificationHandlers) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.notificationService.MarkAllRead(r.Context(), tenantID(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]int64{"updated": n})
}
