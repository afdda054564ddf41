package httpapi

import (
	"net/http"

	"trackra-engine/internal/domain"
	"trackra-engine/internal/notify"
	"trackra-engine/internal/store"
)

type NotificationsHandler struct {
	Notify *notify.Scheduler
}

type notificationsResp struct {
	Notifications []domain.AppNotification `json:"notifications"`
	UnreadCount   int                      `json:"unreadCount"`
}

func (h NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, http.StatusOK)
}

func (h NotificationsHandler) Poll(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Notify.Poll(r.Context()); err != nil {
		writeFailure(w, r, err)
		return
	}
	h.writeList(w, r, http.StatusOK)
}

func (h NotificationsHandler) ReadAll(w http.ResponseWriter, r *http.Request) {
	if err := h.Notify.MarkAllRead(r.Context()); err != nil {
		writeFailure(w, r, err)
		return
	}
	h.writeList(w, r, http.StatusOK)
}

func (h NotificationsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Notify.ClearAll(r.Context()); err != nil {
		writeFailure(w, r, err)
		return
	}
	h.writeList(w, r, http.StatusOK)
}

// Item routes /notifications/{id}/read.
func (h NotificationsHandler) Item(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/notifications/")
	if len(parts) != 2 || parts[1] != "read" {
		WriteError(w, r, http.StatusNotFound, "not_found", "no such route")
		return
	}
	if r.Method != http.MethodPost {
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if err := h.Notify.MarkRead(r.Context(), parts[0]); err != nil {
		writeFailure(w, r, err)
		return
	}
	h.writeList(w, r, http.StatusOK)
}

func (h NotificationsHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Notify.PendingReminders(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string][]store.Reminder{"reminders": pending})
}

func (h NotificationsHandler) writeList(w http.ResponseWriter, r *http.Request, status int) {
	list, err := h.Notify.List(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	unread, err := h.Notify.UnreadCount(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	WriteJSON(w, status, notificationsResp{Notifications: list, UnreadCount: unread})
}
