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

// TableOrderStore defines the read-only database methods order handlers use
// directly; writes go through the table service.
type TableOrderStore interface {
	GetTableOrder(ctx context.Context, arg database.GetTableOrderParams) (database.TableOrder, error)
	ListTableOrderItems(ctx context.Context, tableOrderID uuid.UUID) ([]database.TableOrderItem, error)
}

// TableOrderHandler handles the dine-in order lifecycle.
type TableOrderHandler struct {
	store   TableOrderStore
	service *service.TableService
}

func NewTableOrderHandler(store TableOrderStore, svc *service.TableService) *TableOrderHandler {
	return &TableOrderHandler{store: store, service: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router. The
// router is expected to be mounted under /restaurants/{rid}.
func (h *TableOrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/table-orders", h.Create)
	r.Get("/table-orders/{id}", h.Get)
	r.Post("/table-orders/{id}/items", h.AddItem)
	r.Post("/table-orders/{id}/request-bill", h.RequestBill)
	r.Post("/table-orders/{id}/close", h.Close)
	r.Post("/table-orders/{id}/cancel", h.Cancel)
	r.Patch("/order-items/{id}/status", h.UpdateItemStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerCount int32  `json:"customer_count"`
	WaiterName    string `json:"waiter_name"`
}

type addItemRequest struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Observation string `json:"observation"`
}

type closeOrderRequest struct {
	PaymentMethod        string `json:"payment_method"`
	Discount             string `json:"discount"`
	DiscountType         string `json:"discount_type"`
	ServiceFeeEnabled    bool   `json:"service_fee_enabled"`
	ServiceFeePercentage string `json:"service_fee_percentage"`
	TotalAmount          string `json:"total_amount"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID                   uuid.UUID  `json:"id"`
	TableID              *uuid.UUID `json:"table_id,omitempty"`
	WaiterName           *string    `json:"waiter_name,omitempty"`
	CustomerCount        int32      `json:"customer_count"`
	Status               string     `json:"status"`
	Subtotal             string     `json:"subtotal"`
	Discount             string     `json:"discount"`
	DiscountType         string     `json:"discount_type"`
	ServiceFeeEnabled    bool       `json:"service_fee_enabled"`
	ServiceFeePercentage string     `json:"service_fee_percentage"`
	TotalAmount          string     `json:"total_amount"`
	PaymentMethod        *string    `json:"payment_method,omitempty"`
	OpenedAt             time.Time  `json:"opened_at"`
	ClosedAt             *time.Time `json:"closed_at,omitempty"`
}

type orderItemResponse struct {
	ID          uuid.UUID  `json:"id"`
	OrderID     uuid.UUID  `json:"order_id"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	ProductName string     `json:"product_name"`
	Quantity    int32      `json:"quantity"`
	UnitPrice   string     `json:"unit_price"`
	Observation *string    `json:"observation,omitempty"`
	Status      string     `json:"status"`
	OrderedAt   time.Time  `json:"ordered_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

type orderDetailResponse struct {
	orderResponse
	Items []orderItemResponse `json:"items"`
}

func toOrderResponse(o database.TableOrder) orderResponse {
	resp := orderResponse{
		ID:                   o.ID,
		WaiterName:           textPtr(o.WaiterName),
		CustomerCount:        o.CustomerCount,
		Status:               o.Status,
		Subtotal:             numericToString(o.Subtotal),
		Discount:             numericToString(o.Discount),
		DiscountType:         o.DiscountType,
		ServiceFeeEnabled:    o.ServiceFeeEnabled,
		ServiceFeePercentage: numericToString(o.ServiceFeePercentage),
		TotalAmount:          numericToString(o.TotalAmount),
		PaymentMethod:        textPtr(o.PaymentMethod),
		OpenedAt:             o.OpenedAt,
	}
	if o.TableID.Valid {
		id := uuid.UUID(o.TableID.Bytes)
		resp.TableID = &id
	}
	if o.ClosedAt.Valid {
		t := o.ClosedAt.Time
		resp.ClosedAt = &t
	}
	return resp
}

func toOrderItemResponse(it database.TableOrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:          it.ID,
		OrderID:     it.TableOrderID,
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
	if it.DeliveredAt.Valid {
		t := it.DeliveredAt.Time
		resp.DeliveredAt = &t
	}
	return resp
}

// --- Handlers ---

// Create opens a counter sale: an order with no table attached.
func (h *TableOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.OpenCounterSale(r.Context(), service.OpenCounterSaleRequest{
		RestaurantID:  rid,
		CustomerCount: req.CustomerCount,
		WaiterName:    req.WaiterName,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *TableOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.store.GetTableOrder(r.Context(), database.GetTableOrderParams{ID: id, RestaurantID: rid})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items, err := h.store.ListTableOrderItems(r.Context(), order.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := orderDetailResponse{
		orderResponse: toOrderResponse(order),
		Items:         make([]orderItemResponse, len(items)),
	}
	for i, it := range items {
		resp.Items[i] = toOrderItemResponse(it)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TableOrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.AddItem(r.Context(), service.AddItemRequest{
		RestaurantID: rid,
		OrderID:      id,
		ProductID:    req.ProductID,
		ProductName:  req.ProductName,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		Observation:  req.Observation,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Item  orderItemResponse `json:"item"`
		Order orderResponse     `json:"order"`
	}{
		Item:  toOrderItemResponse(result.Item),
		Order: toOrderResponse(result.Order),
	})
}

func (h *TableOrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.service.UpdateItemStatus(r.Context(), service.UpdateItemStatusRequest{
		RestaurantID: rid,
		ItemID:       id,
		Status:       req.Status,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderItemResponse(item))
}

func (h *TableOrderHandler) RequestBill(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.service.RequestBill(r.Context(), service.RequestBillRequest{RestaurantID: rid, OrderID: id})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *TableOrderHandler) Close(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req closeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.CloseTable(r.Context(), service.CloseTableRequest{
		RestaurantID:         rid,
		OrderID:              id,
		PaymentMethod:        req.PaymentMethod,
		Discount:             req.Discount,
		DiscountType:         req.DiscountType,
		ServiceFeeEnabled:    req.ServiceFeeEnabled,
		ServiceFeePercentage: req.ServiceFeePercentage,
		TotalAmount:          req.TotalAmount,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *TableOrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	rid, ok := restaurantID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(r.Context(), service.CancelOrderRequest{RestaurantID: rid, OrderID: id})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// writeOrderError maps order service errors to HTTP status codes.
func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrTableNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrOrderNotOpen),
		errors.Is(err, service.ErrOrderClosed),
		errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrStatusChanged),
		errors.Is(err, service.ErrTableNotAvailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCustomerCount),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptyProductName),
		errors.Is(err, service.ErrInvalidProductID),
		errors.Is(err, service.ErrInvalidUnitPrice),
		errors.Is(err, service.ErrInvalidDiscount),
		errors.Is(err, service.ErrInvalidDiscountType),
		errors.Is(err, service.ErrInvalidServiceFee),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrEmptyPaymentMethod),
		errors.Is(err, service.ErrInvalidTotalAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
