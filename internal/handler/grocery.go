package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/potluck/internal/apperr"
	"github.com/dukerupert/potluck/internal/auth"
	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/notify"
	"github.com/dukerupert/potluck/internal/store"
)

type GroceryHandler struct {
	groceryStore    *store.GroceryStore
	ingredientStore *store.IngredientStore
	notifier        *notify.Service
	logger          *slog.Logger
}

func NewGroceryHandler(gs *store.GroceryStore, is *store.IngredientStore, n *notify.Service, logger *slog.Logger) *GroceryHandler {
	return &GroceryHandler{groceryStore: gs, ingredientStore: is, notifier: n, logger: logger}
}

// Show returns the aggregated shopping list grouped by aisle.
func (h *GroceryHandler) Show(w http.ResponseWriter, r *http.Request) {
	list, err := h.groceryStore.ShoppingList(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type checkinRequest struct {
	Checked  *bool `json:"checked"`
	Quantity *int  `json:"quantity" validate:"omitempty,min=0"`
}

// Update applies a partial override: either field may be omitted.
func (h *GroceryHandler) Update(w http.ResponseWriter, r *http.Request) {
	ingredientID, err := parseIDParam(r, "ingredient_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req checkinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	by := auth.Username(r.Context())
	upd := model.CheckinUpdate{Checked: req.Checked, Quantity: req.Quantity}
	c, err := h.groceryStore.UpdateCheckin(r.Context(), ingredientID, upd, by)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notifier.GroceryChanged(*c)
	if ing := h.ingredient(r, ingredientID); ing != nil {
		h.notifier.Publish(r.Context(), notify.GroceryChecked(ing, *c, upd, by))
	}
	writeJSON(w, http.StatusOK, notify.NewCheckinPayload(*c))
}

// ClearOverride reverts an ingredient's total to its aggregated demand.
func (h *GroceryHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	ingredientID, err := parseIDParam(r, "ingredient_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := h.groceryStore.ClearOverride(r.Context(), ingredientID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if c == nil {
		writeJSON(w, http.StatusOK, notify.NewCheckinPayload(model.GroceryCheckin{IngredientID: ingredientID}))
		return
	}

	h.notifier.GroceryChanged(*c)
	if ing := h.ingredient(r, ingredientID); ing != nil {
		h.notifier.Publish(r.Context(), notify.OverrideCleared(ing, auth.Username(r.Context())))
	}
	writeJSON(w, http.StatusOK, notify.NewCheckinPayload(*c))
}

type addItemRequest struct {
	IngredientID int64 `json:"ingredient_id" validate:"required"`
	Quantity     *int  `json:"quantity"`
}

// AddItem puts an ingredient on the list on the organizers' behalf and
// returns its updated list entry.
func (h *GroceryHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	qty := 1
	if req.Quantity != nil && *req.Quantity > 0 {
		qty = *req.Quantity
	}

	ing, err := h.groceryStore.AddItem(r.Context(), req.IngredientID, qty)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.notifier.Publish(r.Context(), notify.GroceryItemAdded(ing, qty, auth.Username(r.Context())))

	list, err := h.groceryStore.ShoppingList(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	item, ok := list.Item(ing.ID)
	if !ok {
		writeError(w, h.logger, apperr.New(apperr.CodeInternal, "added item missing from list"))
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// ingredient loads the ingredient named in a notification. The write has
// already committed, so a lookup failure only costs the notification.
func (h *GroceryHandler) ingredient(r *http.Request, id int64) *model.Ingredient {
	ing, err := h.ingredientStore.Get(r.Context(), id)
	if err != nil {
		h.logger.Warn("load ingredient for notification", "ingredient_id", id, "error", err)
		return nil
	}
	return ing
}
