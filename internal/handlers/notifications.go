package handlers

import (
	"net/http"
)

// NotificationHandler hands queued toasts to the page
type NotificationHandler struct {
	sessions SessionProvider
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(sessions SessionProvider) *NotificationHandler {
	return &NotificationHandler{sessions: sessions}
}

// Drain handles GET /api/notifications
func (h *NotificationHandler) Drain(w http.ResponseWriter, r *http.Request) {
	respondOK(w, sessionFor(h.sessions, r).Inbox.Drain())
}
