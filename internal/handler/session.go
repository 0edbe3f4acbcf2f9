package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/potluck/internal/middleware"
	"github.com/dukerupert/potluck/internal/store"
)

type SessionHandler struct {
	organizerStore *store.OrganizerStore
	logger         *slog.Logger
}

func NewSessionHandler(orgs *store.OrganizerStore, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{organizerStore: orgs, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Login exchanges organizer credentials for a bearer token. Each login
// replaces the previous token.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	o, err := h.organizerStore.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("organizer logged in", "username", o.Username)
	writeJSON(w, http.StatusOK, sessionResponse{Token: *o.Token, Username: o.Username})
}

// Logout clears the token presented in the Authorization header. Unknown
// or missing tokens are not an error.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	o, err := h.organizerStore.GetByToken(r.Context(), token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if o != nil {
		if err := h.organizerStore.Logout(r.Context(), o.ID); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
