package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mesalivre/api/internal/service"
)

// KitchenHandler serves the kitchen display queue.
type KitchenHandler struct {
	service *service.KitchenService
}

func NewKitchenHandler(svc *service.KitchenService) *KitchenHandler {
	return &KitchenHandler{service: svc}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router. The
// router is expected to be mounted under /restaurants/{rid}.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/kitchen/queue", h.Queue)
}

// Queue returns items awaiting kitchen action across dine-in and delivery
// orders, oldest first. ?include_ready=true widens the view to plated items.
func (h *KitchenHandler) Queue(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	includeReady := r.URL.Query().Get("include_ready") == "true"

	items, err := h.service.Queue(r.Context(), rid, includeReady)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, items)
}
