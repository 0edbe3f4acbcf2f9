package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/potluck/internal/apperr"
	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/search"
	"github.com/dukerupert/potluck/internal/store"
)

type IngredientHandler struct {
	ingredientStore *store.IngredientStore
	limits          search.Limits
	mode            search.Mode
	maxAge          time.Duration
	logger          *slog.Logger
}

// NewIngredientHandler serves the catalog. mode picks the result cap when
// a request does not pass limit_mode; maxAge is the browser cache lifetime
// of the full catalog dump.
func NewIngredientHandler(is *store.IngredientStore, limits search.Limits, mode search.Mode, maxAge time.Duration, logger *slog.Logger) *IngredientHandler {
	return &IngredientHandler{ingredientStore: is, limits: limits, mode: mode, maxAge: maxAge, logger: logger}
}

func views(ingredients []model.Ingredient, variant model.ViewVariant) []model.IngredientView {
	out := make([]model.IngredientView, len(ingredients))
	for i, ing := range ingredients {
		out[i] = ing.View(variant)
	}
	return out
}

func (h *IngredientHandler) Search(w http.ResponseWriter, r *http.Request) {
	mode := h.mode
	if raw := r.URL.Query().Get("limit_mode"); raw != "" {
		m, err := search.ParseMode(raw)
		if err != nil {
			writeError(w, h.logger, apperr.Validation("limit_mode must be lookup or browse"))
			return
		}
		mode = m
	}

	ingredients, err := h.ingredientStore.Search(r.Context(), r.URL.Query().Get("q"), h.limits.For(mode))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views(ingredients, model.VariantFull))
}

// All dumps the catalog ordered by name for client-side mirroring.
func (h *IngredientHandler) All(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.ingredientStore.All(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if h.maxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.maxAge.Seconds())))
	}
	writeJSON(w, http.StatusOK, views(ingredients, model.VariantFull))
}

func (h *IngredientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	ing, err := h.ingredientStore.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if ing == nil {
		writeError(w, h.logger, apperr.NotFound("Not found"))
		return
	}
	writeJSON(w, http.StatusOK, ing.View(model.VariantFull))
}
