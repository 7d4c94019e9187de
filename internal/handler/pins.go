package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mesalivre/api/internal/database"
	"github.com/mesalivre/api/internal/service"
)

// WaiterStore defines the reads the waiter picker needs.
// Satisfied by *database.Queries.
type WaiterStore interface {
	ListWaiters(ctx context.Context, restaurantID uuid.UUID) ([]database.Waiter, error)
}

// PinHandler serves the device unlock endpoints for the kitchen display and
// the waiter app. These are reachable without a JWT: the PIN itself is the
// gate, and the endpoints leak nothing beyond pass/fail.
type PinHandler struct {
	store   WaiterStore
	service *service.PinService
}

func NewPinHandler(store WaiterStore, svc *service.PinService) *PinHandler {
	return &PinHandler{store: store, service: svc}
}

// RegisterRoutes registers pin endpoints on the given Chi router.
func (h *PinHandler) RegisterRoutes(r chi.Router) {
	r.Post("/restaurants/{rid}/kitchen/verify-pin", h.VerifyKitchenPin)
	r.Get("/restaurants/{rid}/waiters", h.ListWaiters)
	r.Post("/restaurants/{rid}/waiters/{wid}/verify-pin", h.VerifyWaiterPin)
}

type verifyPinRequest struct {
	Pin string `json:"pin"`
}

type waiterResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (h *PinHandler) VerifyKitchenPin(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req verifyPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.VerifyKitchenPin(r.Context(), rid, req.Pin)
	if err != nil {
		writePinError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListWaiters returns the active waiters so the app can show a picker before
// prompting for a PIN. PINs are never included.
func (h *PinHandler) ListWaiters(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	waiters, err := h.store.ListWaiters(r.Context(), rid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]waiterResponse, len(waiters))
	for i, wt := range waiters {
		resp[i] = waiterResponse{ID: wt.ID, Name: wt.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PinHandler) VerifyWaiterPin(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	wid, ok := pathID(w, r, "wid")
	if !ok {
		return
	}

	var req verifyPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.VerifyWaiterPin(r.Context(), rid, wid, req.Pin)
	if err != nil {
		writePinError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writePinError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPinMismatch):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrWaiterNotFound),
		errors.Is(err, service.ErrRestaurantNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
