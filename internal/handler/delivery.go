package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mesalivre/api/internal/database"
	"github.com/mesalivre/api/internal/service"
)

// DeliveryReadStore defines the read-only database methods delivery
// handlers use directly; writes go through the delivery service.
type DeliveryReadStore interface {
	GetDeliveryOrder(ctx context.Context, arg database.GetDeliveryOrderParams) (database.DeliveryOrder, error)
	ListDeliveryOrders(ctx context.Context, arg database.ListDeliveryOrdersParams) ([]database.DeliveryOrder, error)
	ListDeliveryOrderItems(ctx context.Context, deliveryOrderID uuid.UUID) ([]database.DeliveryOrderItem, error)
}

// DeliveryHandler handles the delivery order lifecycle.
type DeliveryHandler struct {
	store   DeliveryReadStore
	service *service.DeliveryService
}

func NewDeliveryHandler(store DeliveryReadStore, svc *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{store: store, service: svc}
}

// RegisterRoutes registers delivery endpoints on the given Chi router. The
// router is expected to be mounted under /restaurants/{rid}.
func (h *DeliveryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/delivery-orders", h.Create)
	r.Get("/delivery-orders", h.List)
	r.Get("/delivery-orders/{id}", h.Get)
	r.Patch("/delivery-orders/{id}/status", h.UpdateStatus)
	r.Patch("/delivery-items/{id}/status", h.UpdateItemStatus)
}

// --- Request / Response types ---

type deliveryItemRequest struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Observation string `json:"observation"`
}

type createDeliveryRequest struct {
	CustomerName  string                `json:"customer_name"`
	CustomerPhone string                `json:"customer_phone"`
	Address       string                `json:"address"`
	PaymentMethod string                `json:"payment_method"`
	ChangeFor     string                `json:"change_for"`
	DeliveryFee   string                `json:"delivery_fee"`
	Items         []deliveryItemRequest `json:"items"`
}

type deliveryResponse struct {
	ID            uuid.UUID `json:"id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone *string   `json:"customer_phone,omitempty"`
	Address       string    `json:"address"`
	PaymentMethod string    `json:"payment_method"`
	ChangeFor     *string   `json:"change_for,omitempty"`
	Status        string    `json:"status"`
	Subtotal      string    `json:"subtotal"`
	DeliveryFee   string    `json:"delivery_fee"`
	TotalAmount   string    `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type deliveryItemResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"order_id"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	ProductName string     `json:"product_name"`
	Quantity    int32      `json:"quantity"`
	UnitPrice   string     `json:"unit_price"`
	Observation *string    `json:"observation,omitempty"`
	Status      string     `json:"status"`
	OrderedAt   time.Time  `json:"ordered_at"`
}

type deliveryDetailResponse struct {
	deliveryResponse
	Items []deliveryItemResponse `json:"items"`
}

func toDeliveryResponse(o database.DeliveryOrder) deliveryResponse {
	resp := deliveryResponse{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		CustomerPhone: textPtr(o.CustomerPhone),
		Address:       o.Address,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		Subtotal:      numericToString(o.Subtotal),
		DeliveryFee:   numericToString(o.DeliveryFee),
		TotalAmount:   numericToString(o.TotalAmount),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.ChangeFor.Valid {
		cf := numericToString(o.ChangeFor)
		resp.ChangeFor = &cf
	}
	return resp
}

func toDeliveryItemResponse(it database.DeliveryOrderItem) deliveryItemResponse {
	resp := deliveryItemResponse{
		ID:          it.ID,
		OrderID:     it.DeliveryOrderID,
		ProductName: it.ProductName,
		Quantity:    it.Quantity,
		UnitPrice:   numericToString(it.UnitPrice),
		Observation: textPtr(it.Observation),
		Status:      it.Status,
		OrderedAt:   it.OrderedAt,
	}
	if it.ProductID.Valid {
		id := uuid.UUID(it.ProductID.Bytes)
		resp.ProductID = &id
	}
	return resp
}

// --- Handlers ---

func (h *DeliveryHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req createDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.CreateDeliveryItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateDeliveryItemRequest{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Observation: it.Observation,
		}
	}

	result, err := h.service.CreateDeliveryOrder(r.Context(), service.CreateDeliveryOrderRequest{
		RestaurantID:  rid,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		ChangeFor:     req.ChangeFor,
		DeliveryFee:   req.DeliveryFee,
		Items:         items,
	})
	if err != nil {
		writeDeliveryError(w, err)
		return
	}

	resp := deliveryDetailResponse{
		deliveryResponse: toDeliveryResponse(result.Order),
		Items:            make([]deliveryItemResponse, len(result.Items)),
	}
	for i, it := range result.Items {
		resp.Items[i] = toDeliveryItemResponse(it)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List returns delivery orders newest first, optionally filtered by status.
// ?status=pending&limit=50&offset=0
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	params := database.ListDeliveryOrdersParams{
		RestaurantID: rid,
		Limit:        50,
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		params.Limit = int32(n)
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		params.Offset = int32(n)
	}

	orders, err := h.store.ListDeliveryOrders(r.Context(), params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]deliveryResponse, len(orders))
	for i, o := range orders {
		resp[i] = toDeliveryResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.store.GetDeliveryOrder(r.Context(), database.GetDeliveryOrderParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "delivery order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items, err := h.store.ListDeliveryOrderItems(r.Context(), order.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := deliveryDetailResponse{
		deliveryResponse: toDeliveryResponse(order),
		Items:            make([]deliveryItemResponse, len(items)),
	}
	for i, it := range items {
		resp.Items[i] = toDeliveryItemResponse(it)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DeliveryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.UpdateDeliveryStatus(r.Context(), service.UpdateDeliveryStatusRequest{
		RestaurantID: rid,
		OrderID:      id,
		Status:       req.Status,
	})
	if err != nil {
		writeDeliveryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryResponse(order))
}

func (h *DeliveryHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.service.UpdateDeliveryItemStatus(r.Context(), service.UpdateDeliveryItemStatusRequest{
		RestaurantID: rid,
		ItemID:       id,
		Status:       req.Status,
	})
	if err != nil {
		writeDeliveryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryItemResponse(item))
}

// writeDeliveryError maps delivery service errors to HTTP status codes.
func writeDeliveryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDeliveryNotFound),
		errors.Is(err, service.ErrDeliveryItemMissing):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrStatusChanged):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrEmptyCustomerName),
		errors.Is(err, service.ErrEmptyAddress),
		errors.Is(err, service.ErrEmptyPaymentMethod),
		errors.Is(err, service.ErrInvalidChangeFor),
		errors.Is(err, service.ErrInvalidDeliveryFee),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptyProductName),
		errors.Is(err, service.ErrInvalidProductID),
		errors.Is(err, service.ErrInvalidUnitPrice),
		errors.Is(err, service.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
