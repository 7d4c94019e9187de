package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mesalivre/api/internal/database"
	"github.com/mesalivre/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the delivery service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrEmptyCustomerName   = errors.New("customer_name is required")
	ErrEmptyAddress        = errors.New("address is required")
	ErrInvalidChangeFor    = errors.New("invalid change_for")
	ErrInvalidDeliveryFee  = errors.New("invalid delivery_fee")
	ErrDeliveryNotFound    = errors.New("delivery order not found")
	ErrDeliveryItemMissing = errors.New("delivery item not found")
)

// DeliveryStore defines the DB methods needed for delivery orders.
// Satisfied by *database.Queries (and its WithTx variant).
type DeliveryStore interface {
	CreateDeliveryOrder(ctx context.Context, arg database.CreateDeliveryOrderParams) (database.DeliveryOrder, error)
	CreateDeliveryOrderItem(ctx context.Context, arg database.CreateDeliveryOrderItemParams) (database.DeliveryOrderItem, error)
	GetDeliveryOrder(ctx context.Context, arg database.GetDeliveryOrderParams) (database.DeliveryOrder, error)
	SetDeliveryStatus(ctx context.Context, arg database.SetDeliveryStatusParams) (database.DeliveryOrder, error)
	GetDeliveryOrderItem(ctx context.Context, arg database.GetDeliveryOrderItemParams) (database.DeliveryOrderItem, error)
	SetDeliveryItemStatus(ctx context.Context, arg database.SetDeliveryItemStatusParams) (database.DeliveryOrderItem, error)
}

// NewDeliveryStore creates a DeliveryStore from a DBTX (pool or tx).
type NewDeliveryStore func(db database.DBTX) DeliveryStore

type DeliveryService struct {
	store    DeliveryStore
	pool     TxBeginner
	newStore NewDeliveryStore
	notifier Notifier
}

func NewDeliveryService(store DeliveryStore, pool TxBeginner, newStore NewDeliveryStore, notifier Notifier) *DeliveryService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &DeliveryService{store: store, pool: pool, newStore: newStore, notifier: notifier}
}

type CreateDeliveryItemRequest struct {
	ProductID   string
	ProductName string
	Quantity    int32
	UnitPrice   string
	Observation string
}

type CreateDeliveryOrderRequest struct {
	RestaurantID  uuid.UUID
	CustomerName  string
	CustomerPhone string
	Address       string
	PaymentMethod string
	ChangeFor     string
	DeliveryFee   string
	Items         []CreateDeliveryItemRequest
}

type CreateDeliveryOrderResult struct {
	Order database.DeliveryOrder
	Items []database.DeliveryOrderItem
}

// CreateDeliveryOrder validates, prices, and creates a delivery order with
// its items atomically. The total is computed here from the items plus the
// delivery fee; the client never supplies it.
func (s *DeliveryService) CreateDeliveryOrder(ctx context.Context, req CreateDeliveryOrderRequest) (*CreateDeliveryOrderResult, error) {
	if req.CustomerName == "" {
		return nil, ErrEmptyCustomerName
	}
	if req.Address == "" {
		return nil, ErrEmptyAddress
	}
	if req.PaymentMethod == "" {
		return nil, ErrEmptyPaymentMethod
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	changeFor := pgtype.Numeric{}
	if req.ChangeFor != "" {
		cf, err := decimal.NewFromString(req.ChangeFor)
		if err != nil || cf.IsNegative() {
			return nil, ErrInvalidChangeFor
		}
		changeFor = decimalToNumeric(cf)
	}
	deliveryFee, err := parseMoney(req.DeliveryFee, decimal.Zero)
	if err != nil || deliveryFee.IsNegative() {
		return nil, ErrInvalidDeliveryFee
	}

	type pricedItem struct {
		params database.CreateDeliveryOrderItemParams
	}
	subtotal := decimal.Zero
	items := make([]pricedItem, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		if item.ProductName == "" {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrEmptyProductName)
		}
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidUnitPrice)
		}
		productID := pgtype.UUID{}
		if item.ProductID != "" {
			pid, err := uuid.Parse(item.ProductID)
			if err != nil {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidProductID)
			}
			productID = pgtype.UUID{Bytes: pid, Valid: true}
		}
		subtotal = subtotal.Add(unitPrice.Mul(decimal.NewFromInt32(item.Quantity)))
		items = append(items, pricedItem{params: database.CreateDeliveryOrderItemParams{
			ProductID:   productID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   decimalToNumeric(unitPrice),
			Observation: textOrNull(item.Observation),
		}})
	}
	total := subtotal.Add(deliveryFee)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.CreateDeliveryOrder(ctx, database.CreateDeliveryOrderParams{
		RestaurantID:  req.RestaurantID,
		CustomerName:  req.CustomerName,
		CustomerPhone: textOrNull(req.CustomerPhone),
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		ChangeFor:     changeFor,
		Subtotal:      decimalToNumeric(subtotal),
		DeliveryFee:   decimalToNumeric(deliveryFee),
		TotalAmount:   decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("create delivery order: %w", err)
	}

	created := make([]database.DeliveryOrderItem, 0, len(items))
	for _, pi := range items {
		pi.params.DeliveryOrderID = order.ID
		item, err := store.CreateDeliveryOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create delivery item: %w", err)
		}
		created = append(created, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.Publish(ChangeEvent{Entity: EntityDeliveryOrder, Action: ActionCreated, ID: order.ID, RestaurantID: req.RestaurantID})
	return &CreateDeliveryOrderResult{Order: order, Items: created}, nil
}

type UpdateDeliveryStatusRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	Status       string
}

// UpdateDeliveryStatus moves a delivery order along pending → preparing →
// delivery → completed, with cancelled reachable from any non-completed
// state. Compare-and-set, idempotent on repeats, like item updates.
func (s *DeliveryService) UpdateDeliveryStatus(ctx context.Context, req UpdateDeliveryStatusRequest) (database.DeliveryOrder, error) {
	if !isKnownStatus(deliveryOrderTransitions, req.Status, enum.DeliveryStatusCompleted, enum.DeliveryStatusCancelled) {
		return database.DeliveryOrder{}, ErrInvalidStatus
	}

	order, err := s.store.GetDeliveryOrder(ctx, database.GetDeliveryOrderParams{ID: req.OrderID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DeliveryOrder{}, ErrDeliveryNotFound
		}
		return database.DeliveryOrder{}, fmt.Errorf("get delivery order: %w", err)
	}

	if order.Status == req.Status {
		return order, nil
	}
	if !canTransition(deliveryOrderTransitions, order.Status, req.Status) {
		return database.DeliveryOrder{}, ErrIllegalTransition
	}

	updated, err := s.store.SetDeliveryStatus(ctx, database.SetDeliveryStatusParams{
		ID:            req.OrderID,
		RestaurantID:  req.RestaurantID,
		Status:        req.Status,
		CurrentStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, getErr := s.store.GetDeliveryOrder(ctx, database.GetDeliveryOrderParams{ID: req.OrderID, RestaurantID: req.RestaurantID})
			if getErr == nil && current.Status == req.Status {
				return current, nil
			}
			return database.DeliveryOrder{}, ErrStatusChanged
		}
		return database.DeliveryOrder{}, fmt.Errorf("set delivery status: %w", err)
	}

	s.notifier.Publish(ChangeEvent{Entity: EntityDeliveryOrder, Action: ActionStatusChanged, ID: updated.ID, RestaurantID: req.RestaurantID})
	return updated, nil
}

type UpdateDeliveryItemStatusRequest struct {
	RestaurantID uuid.UUID
	ItemID       uuid.UUID
	Status       string
}

// UpdateDeliveryItemStatus moves a delivery item pending → preparing →
// ready. Delivery items carry no delivered/cancelled states of their own;
// handover and cancellation live on the order.
func (s *DeliveryService) UpdateDeliveryItemStatus(ctx context.Context, req UpdateDeliveryItemStatusRequest) (database.DeliveryOrderItem, error) {
	if !isKnownStatus(deliveryItemTransitions, req.Status, enum.DeliveryItemStatusReady) {
		return database.DeliveryOrderItem{}, ErrInvalidStatus
	}

	item, err := s.store.GetDeliveryOrderItem(ctx, database.GetDeliveryOrderItemParams{ID: req.ItemID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DeliveryOrderItem{}, ErrDeliveryItemMissing
		}
		return database.DeliveryOrderItem{}, fmt.Errorf("get delivery item: %w", err)
	}

	if item.Status == req.Status {
		return item, nil
	}
	if !canTransition(deliveryItemTransitions, item.Status, req.Status) {
		return database.DeliveryOrderItem{}, ErrIllegalTransition
	}

	updated, err := s.store.SetDeliveryItemStatus(ctx, database.SetDeliveryItemStatusParams{
		ID:            req.ItemID,
		RestaurantID:  req.RestaurantID,
		Status:        req.Status,
		CurrentStatus: item.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, getErr := s.store.GetDeliveryOrderItem(ctx, database.GetDeliveryOrderItemParams{ID: req.ItemID, RestaurantID: req.RestaurantID})
			if getErr == nil && current.Status == req.Status {
				return current, nil
			}
			return database.DeliveryOrderItem{}, ErrStatusChanged
		}
		return database.DeliveryOrderItem{}, fmt.Errorf("set delivery item status: %w", err)
	}

	s.notifier.Publish(ChangeEvent{Entity: EntityDeliveryItem, Action: ActionStatusChanged, ID: updated.ID, RestaurantID: req.RestaurantID})
	return updated, nil
}
