package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mesalivre/api/internal/database"
	"github.com/mesalivre/api/internal/service"
)

// TableStore defines the read-only database methods table handlers use
// directly; writes go through the table service.
type TableStore interface {
	ListTables(ctx context.Context, restaurantID uuid.UUID) ([]database.Table, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error)
}

// TableHandler handles floor-plan endpoints: table CRUD plus seating.
type TableHandler struct {
	store   TableStore
	service *service.TableService
}

func NewTableHandler(store TableStore, svc *service.TableService) *TableHandler {
	return &TableHandler{store: store, service: svc}
}

// RegisterRoutes registers table endpoints on the given Chi router. The
// router is expected to be mounted under /restaurants/{rid}.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tables", h.List)
	r.Post("/tables", h.Create)
	r.Get("/tables/{id}", h.Get)
	r.Put("/tables/{id}", h.Update)
	r.Delete("/tables/{id}", h.Delete)
	r.Post("/tables/{id}/open", h.Open)
}

// --- Request / Response types ---

type tableRequest struct {
	Number   int32  `json:"number"`
	Name     string `json:"name"`
	Capacity int32  `json:"capacity"`
}

type openTableRequest struct {
	CustomerCount int32  `json:"customer_count"`
	WaiterName    string `json:"waiter_name"`
}

type tableResponse struct {
	ID             uuid.UUID  `json:"id"`
	Number         int32      `json:"number"`
	Name           *string    `json:"name,omitempty"`
	Capacity       int32      `json:"capacity"`
	Status         string     `json:"status"`
	CurrentOrderID *uuid.UUID `json:"current_order_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toTableResponse(t database.Table) tableResponse {
	resp := tableResponse{
		ID:        t.ID,
		Number:    t.Number,
		Name:      textPtr(t.Name),
		Capacity:  t.Capacity,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.CurrentOrderID.Valid {
		id := uuid.UUID(t.CurrentOrderID.Bytes)
		resp.CurrentOrderID = &id
	}
	return resp
}

// --- Handlers ---

func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	tables, err := h.store.ListTables(r.Context(), rid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	table, err := h.store.GetTable(r.Context(), database.GetTableParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	table, err := h.service.CreateTable(r.Context(), service.CreateTableRequest{
		RestaurantID: rid,
		Number:       req.Number,
		Name:         req.Name,
		Capacity:     req.Capacity,
	})
	if err != nil {
		writeTableError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req tableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	table, err := h.service.UpdateTable(r.Context(), service.UpdateTableRequest{
		RestaurantID: rid,
		TableID:      id,
		Number:       req.Number,
		Name:         req.Name,
		Capacity:     req.Capacity,
	})
	if err != nil {
		writeTableError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteTable(r.Context(), rid, id); err != nil {
		writeTableError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TableHandler) Open(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req openTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.OpenTable(r.Context(), service.OpenTableRequest{
		RestaurantID:  rid,
		TableID:       id,
		CustomerCount: req.CustomerCount,
		WaiterName:    req.WaiterName,
	})
	if err != nil {
		writeTableError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// writeTableError maps table service errors to HTTP status codes.
func writeTableError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTableNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTableNotAvailable),
		errors.Is(err, service.ErrTableNumberTaken),
		errors.Is(err, service.ErrTableOccupied),
		errors.Is(err, service.ErrStatusChanged):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidTableNumber),
		errors.Is(err, service.ErrInvalidCapacity),
		errors.Is(err, service.ErrInvalidCustomerCount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// restaurantID extracts and validates the {rid} path parameter.
func restaurantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid restaurant ID")
		return uuid.Nil, false
	}
	return rid, true
}

// pathID extracts and validates a UUID path parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
