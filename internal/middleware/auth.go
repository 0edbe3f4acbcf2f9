package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/potluck/internal/auth"
	"github.com/dukerupert/potluck/internal/model"
)

// TokenResolver looks up the organizer holding a bearer token. It returns
// nil when no organizer matches.
type TokenResolver interface {
	GetByToken(ctx context.Context, token string) (*model.Organizer, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func resolve(r *http.Request, tokens TokenResolver, logger *slog.Logger) (*http.Request, bool) {
	token := BearerToken(r)
	if token == "" {
		return r, false
	}
	o, err := tokens.GetByToken(r.Context(), token)
	if err != nil {
		logger.Error("resolve organizer token", "error", err)
		return r, false
	}
	if o == nil {
		return r, false
	}
	ctx := auth.WithOrganizer(r.Context(), auth.Organizer{ID: o.ID, Username: o.Username})
	return r.WithContext(ctx), true
}

// RequireOrganizer answers 401 unless the request carries a valid
// organizer token.
func RequireOrganizer(tokens TokenResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, ok := resolve(r, tokens, logger)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalOrganizer attaches the organizer when a valid token is present
// and otherwise lets the request through anonymously.
func OptionalOrganizer(tokens TokenResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, _ = resolve(r, tokens, logger)
			next.ServeHTTP(w, r)
		})
	}
}
