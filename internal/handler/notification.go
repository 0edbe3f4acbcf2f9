package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/potluck/internal/store"
)

type NotificationHandler struct {
	notificationStore *store.NotificationStore
	limit             int
	logger            *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, limit int, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notificationStore: ns, limit: limit, logger: logger}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notificationStore.Recent(r.Context(), h.limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if _, err := h.notificationStore.MarkAllRead(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
