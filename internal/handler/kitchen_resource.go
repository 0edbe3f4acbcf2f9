package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/potluck/internal/apperr"
	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/store"
)

type KitchenResourceHandler struct {
	resourceStore *store.KitchenResourceStore
	logger        *slog.Logger
}

func NewKitchenResourceHandler(rs *store.KitchenResourceStore, logger *slog.Logger) *KitchenResourceHandler {
	return &KitchenResourceHandler{resourceStore: rs, logger: logger}
}

type resourceRequest struct {
	Kind        model.ResourceKind `json:"kind"`
	Name        string             `json:"name"`
	Position    *int               `json:"position" validate:"omitempty,min=0"`
	PointPerson string             `json:"point_person"`
	Phone       string             `json:"phone"`
	IsDriver    bool               `json:"is_driver"`
}

type resourceUpdateRequest struct {
	Name        *string `json:"name"`
	Position    *int    `json:"position" validate:"omitempty,min=0"`
	PointPerson *string `json:"point_person"`
	Phone       *string `json:"phone"`
	IsDriver    *bool   `json:"is_driver"`
}

func (h *KitchenResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	resources, err := h.resourceStore.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

func (h *KitchenResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req resourceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.resourceStore.Create(r.Context(), model.KitchenResourceInput{
		Kind:        req.Kind,
		Name:        req.Name,
		Position:    req.Position,
		PointPerson: req.PointPerson,
		Phone:       req.Phone,
		IsDriver:    req.IsDriver,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *KitchenResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req resourceUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.resourceStore.Update(r.Context(), id, model.KitchenResourceUpdate{
		Name:        req.Name,
		Position:    req.Position,
		PointPerson: req.PointPerson,
		Phone:       req.Phone,
		IsDriver:    req.IsDriver,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if res == nil {
		writeError(w, h.logger, apperr.NotFound("Not found"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *KitchenResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	deleted, err := h.resourceStore.Delete(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !deleted {
		writeError(w, h.logger, apperr.NotFound("Not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
