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

type SubmissionHandler struct {
	submissionStore *store.SubmissionStore
	notifier        *notify.Service
	logger          *slog.Logger
}

func NewSubmissionHandler(ss *store.SubmissionStore, n *notify.Service, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{submissionStore: ss, notifier: n, logger: logger}
}

type lineItemRequest struct {
	IngredientID int64 `json:"ingredient_id" validate:"required"`
	Quantity     *int  `json:"quantity"`
}

// submissionRequest is the body of create and full update. A missing or
// null ingredients array decodes to nil; an empty array is not nil.
type submissionRequest struct {
	model.SubmissionFields
	Ingredients []lineItemRequest `json:"ingredients" validate:"dive"`
}

// desired converts the request items. Items without a quantity count as
// defaultQty.
func (req submissionRequest) desired(defaultQty int) []model.DesiredItem {
	if req.Ingredients == nil {
		return nil
	}
	items := make([]model.DesiredItem, 0, len(req.Ingredients))
	for _, it := range req.Ingredients {
		qty := defaultQty
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		items = append(items, model.DesiredItem{IngredientID: it.IngredientID, Quantity: qty})
	}
	return items
}

type submissionEnvelope struct {
	Submission model.SubmissionView `json:"submission"`
}

func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Quantity is required on create; a missing one fails validation as 0.
	sub, err := h.submissionStore.Create(r.Context(), req.SubmissionFields, req.desired(0))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notifier.Publish(r.Context(), notify.SubmissionCreated(sub))
	writeJSON(w, http.StatusCreated, submissionEnvelope{Submission: sub.View()})
}

func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissionStore.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]model.SubmissionView, len(subs))
	for i, s := range subs {
		out[i] = s.View()
	}
	writeJSON(w, http.StatusOK, out)
}

// Lookup finds a participant's own submission by phone number.
func (h *SubmissionHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	sub, err := h.submissionStore.FindByPhone(r.Context(), r.URL.Query().Get("phone"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if sub == nil {
		writeError(w, h.logger, apperr.NotFound("No submission found for that phone number"))
		return
	}
	writeJSON(w, http.StatusOK, submissionEnvelope{Submission: sub.View()})
}

func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	sub, err := h.submissionStore.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if sub == nil {
		writeError(w, h.logger, apperr.NotFound("Submission %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, sub.View())
}

// Update replaces the submission's fields and reconciles its ingredients.
// Omitting members keeps the stored members; omitting ingredients keeps
// the stored line items.
func (h *SubmissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req submissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if req.Members == nil {
		current, err := h.submissionStore.Get(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if current == nil {
			writeError(w, h.logger, apperr.NotFound("Submission %d not found", id))
			return
		}
		req.Members = current.Members
	}

	sub, plan, err := h.submissionStore.Update(r.Context(), id, req.SubmissionFields, req.desired(1))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notifier.Publish(r.Context(), notify.SubmissionUpdated(sub, plan, auth.IsOrganizer(r.Context())))
	writeJSON(w, http.StatusOK, sub.View())
}

func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	sub, err := h.submissionStore.Delete(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notifier.Publish(r.Context(), notify.SubmissionDeleted(sub))
	w.WriteHeader(http.StatusNoContent)
}

type addIngredientRequest struct {
	IngredientID int64 `json:"ingredient_id" validate:"required"`
	Quantity     *int  `json:"quantity"`
}

func (h *SubmissionHandler) AddIngredient(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req addIngredientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	sub, ing, err := h.submissionStore.AddIngredient(r.Context(), id, req.IngredientID, qty)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notifier.Publish(r.Context(), notify.IngredientAdded(sub, ing))
	writeJSON(w, http.StatusOK, sub.View())
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// SetIngredientQuantity sets one line item's quantity. A missing or
// non-positive quantity removes the line item.
func (h *SubmissionHandler) SetIngredientQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	ingredientID, err := parseIDParam(r, "ingredient_id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	qty := 0
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	sub, ing, removed, err := h.submissionStore.SetIngredientQuantity(r.Context(), id, ingredientID, qty)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notifier.Publish(r.Context(), notify.IngredientQuantitySet(sub, ing, removed))
	writeJSON(w, http.StatusOK, sub.View())
}
