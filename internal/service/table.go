package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mesalivre/api/internal/database"
	"github.com/mesalivre/api/internal/enum"
	"github.com/shopspring/decimal"
)

// A close is accepted when the client total agrees with the server total to
// the cent; beyond that the server recomputation wins.
var closeTolerance = decimal.New(1, -2)

// Errors returned by the table service, grouped by failure class.
var (
	// conflicts: resource is in an incompatible state
	ErrTableNotAvailable = errors.New("table is not available")
	ErrTableNumberTaken  = errors.New("table number already in use")
	ErrStatusChanged     = errors.New("status changed concurrently, please retry")

	// invalid state: the operation's status precondition does not hold
	ErrOrderNotOpen = errors.New("order is not open")
	ErrOrderClosed  = errors.New("order is already closed")

	// illegal transition: the edge is not in the allowed set
	ErrIllegalTransition = errors.New("illegal status transition")

	// preconditions: structural constraints
	ErrTableOccupied = errors.New("table is occupied")

	// not found
	ErrTableNotFound = errors.New("table not found")
	ErrOrderNotFound = errors.New("order not found")
	ErrItemNotFound  = errors.New("order item not found")

	// validation
	ErrInvalidCustomerCount = errors.New("customer_count must be >= 1")
	ErrInvalidQuantity      = errors.New("quantity must be >= 1")
	ErrInvalidCapacity      = errors.New("capacity must be >= 1")
	ErrInvalidTableNumber   = errors.New("table number must be >= 1")
	ErrEmptyProductName     = errors.New("product_name is required")
	ErrInvalidProductID     = errors.New("invalid product_id")
	ErrInvalidUnitPrice     = errors.New("invalid unit_price")
	ErrInvalidDiscount      = errors.New("invalid discount")
	ErrInvalidDiscountType  = errors.New("invalid discount_type")
	ErrInvalidServiceFee    = errors.New("invalid service_fee_percentage")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrEmptyPaymentMethod   = errors.New("payment_method is required")
	ErrInvalidTotalAmount   = errors.New("invalid total_amount")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TableStore defines the DB methods the table service mutates through.
// Satisfied by *database.Queries (and its WithTx variant).
type TableStore interface {
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error)
	UpdateTable(ctx context.Context, arg database.UpdateTableParams) (database.Table, error)
	DeleteTable(ctx context.Context, arg database.DeleteTableParams) (uuid.UUID, error)
	OccupyTable(ctx context.Context, arg database.OccupyTableParams) (database.Table, error)
	MarkTableRequestingBill(ctx context.Context, arg database.MarkTableRequestingBillParams) (database.Table, error)
	FreeTable(ctx context.Context, arg database.FreeTableParams) (database.Table, error)

	CreateTableOrder(ctx context.Context, arg database.CreateTableOrderParams) (database.TableOrder, error)
	GetTableOrder(ctx context.Context, arg database.GetTableOrderParams) (database.TableOrder, error)
	AddToOrderSubtotal(ctx context.Context, arg database.AddToOrderSubtotalParams) (database.TableOrder, error)
	DeductFromOrderSubtotal(ctx context.Context, arg database.DeductFromOrderSubtotalParams) (database.TableOrder, error)
	MarkOrderRequestingBill(ctx context.Context, arg database.MarkOrderRequestingBillParams) (database.TableOrder, error)
	CloseTableOrder(ctx context.Context, arg database.CloseTableOrderParams) (database.TableOrder, error)
	CancelTableOrder(ctx context.Context, arg database.CancelTableOrderParams) (database.TableOrder, error)

	CreateTableOrderItem(ctx context.Context, arg database.CreateTableOrderItemParams) (database.TableOrderItem, error)
	GetTableOrderItem(ctx context.Context, arg database.GetTableOrderItemParams) (database.TableOrderItem, error)
	SetOrderItemStatus(ctx context.Context, arg database.SetOrderItemStatusParams) (database.TableOrderItem, error)
	SumTableOrderItems(ctx context.Context, tableOrderID uuid.UUID) (pgtype.Numeric, error)
	CancelPendingItems(ctx context.Context, tableOrderID uuid.UUID) (int64, error)
}

// NewTableStore creates a TableStore from a DBTX (pool or tx).
type NewTableStore func(db database.DBTX) TableStore

// TableService is the only writer path for tables, table orders, and their
// items. Every UI-visible mutation of those entities routes through here.
type TableService struct {
	store    TableStore
	pool     TxBeginner
	newStore NewTableStore
	notifier Notifier
}

// NewTableService creates a new TableService. store must be pool-backed;
// tx-scoped stores are created through newStore.
func NewTableService(store TableStore, pool TxBeginner, newStore NewTableStore, notifier Notifier) *TableService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &TableService{store: store, pool: pool, newStore: newStore, notifier: notifier}
}

// --- Table CRUD ---

type CreateTableRequest struct {
	RestaurantID uuid.UUID
	Number       int32
	Name         string
	Capacity     int32
}

func (s *TableService) CreateTable(ctx context.Context, req CreateTableRequest) (database.Table, error) {
	if req.Number < 1 {
		return database.Table{}, ErrInvalidTableNumber
	}
	if req.Capacity < 1 {
		return database.Table{}, ErrInvalidCapacity
	}
	table, err := s.store.CreateTable(ctx, database.CreateTableParams{
		RestaurantID: req.RestaurantID,
		Number:       req.Number,
		Name:         textOrNull(req.Name),
		Capacity:     req.Capacity,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return database.Table{}, ErrTableNumberTaken
		}
		return database.Table{}, fmt.Errorf("create table: %w", err)
	}
	s.notifier.Publish(ChangeEvent{Entity: EntityTable, Action: ActionCreated, ID: table.ID, RestaurantID: req.RestaurantID})
	return table, nil
}

type UpdateTableRequest struct {
	RestaurantID uuid.UUID
	TableID      uuid.UUID
	Number       int32
	Name         string
	Capacity     int32
}

// UpdateTable rejects changes to any table that is not available: a table's
// identity must not change mid-service.
func (s *TableService) UpdateTable(ctx context.Context, req UpdateTableRequest) (database.Table, error) {
	if req.Number < 1 {
		return database.Table{}, ErrInvalidTableNumber
	}
	if req.Capacity < 1 {
		return database.Table{}, ErrInvalidCapacity
	}
	table, err := s.store.UpdateTable(ctx, database.UpdateTableParams{
		ID:           req.TableID,
		RestaurantID: req.RestaurantID,
		Number:       req.Number,
		Name:         textOrNull(req.Name),
		Capacity:     req.Capacity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Table{}, s.classifyTableMiss(ctx, req.RestaurantID, req.TableID)
		}
		if isUniqueViolation(err) {
			return database.Table{}, ErrTableNumberTaken
		}
		return database.Table{}, fmt.Errorf("update table: %w", err)
	}
	s.notifier.Publish(ChangeEvent{Entity: EntityTable, Action: ActionUpdated, ID: table.ID, RestaurantID: req.RestaurantID})
	return table, nil
}

func (s *TableService) DeleteTable(ctx context.Context, restaurantID, tableID uuid.UUID) error {
	_, err := s.store.DeleteTable(ctx, database.DeleteTableParams{ID: tableID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.classifyTableMiss(ctx, restaurantID, tableID)
		}
		return fmt.Errorf("delete table: %w", err)
	}
	s.notifier.Publish(ChangeEvent{Entity: EntityTable, Action: ActionDeleted, ID: tableID, RestaurantID: restaurantID})
	return nil
}

// classifyTableMiss distinguishes "no such table" from "table exists but is
// occupied" after a guarded write matched nothing.
func (s *TableService) classifyTableMiss(ctx context.Context, restaurantID, tableID uuid.UUID) error {
	_, err := s.store.GetTable(ctx, database.GetTableParams{ID: tableID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTableNotFound
		}
		return fmt.Errorf("get table: %w", err)
	}
	return ErrTableOccupied
}

// --- Lifecycle: open ---

type OpenTableRequest struct {
	RestaurantID  uuid.UUID
	TableID       uuid.UUID
	CustomerCount int32
	WaiterName    string
}

// OpenTable seats a party: it creates an open order and flips the table to
// occupied in one transaction. The occupy step is conditional on the table
// still being available, so of two concurrent opens exactly one commits an
// order; the loser's insert is rolled back and surfaces ErrTableNotAvailable.
func (s *TableService) OpenTable(ctx context.Context, req OpenTableRequest) (database.TableOrder, error) {
	if req.CustomerCount < 1 {
		return database.TableOrder{}, ErrInvalidCustomerCount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.TableOrder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	table, err := store.GetTable(ctx, database.GetTableParams{ID: req.TableID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.TableOrder{}, ErrTableNotFound
		}
		return database.TableOrder{}, fmt.Errorf("get table: %w", err)
	}
	if table.Status != enum.TableStatusAvailable {
		return database.TableOrder{}, ErrTableNotAvailable
	}

	order, err := store.CreateTableOrder(ctx, database.CreateTableOrderParams{
		RestaurantID:  req.RestaurantID,
		TableID:       pgtype.UUID{Bytes: req.TableID, Valid: true},
		WaiterName:    textOrNull(req.WaiterName),
		CustomerCount: req.CustomerCount,
	})
	if err != nil {
		return database.TableOrder{}, fmt.Errorf("create table order: %w", err)
	}

	if _, err := store.OccupyTable(ctx, database.OccupyTableParams{
		ID:           req.TableID,
		RestaurantID: req.RestaurantID,
		OrderID:      order.ID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race after the read above; rollback drops the order.
			return database.TableOrder{}, ErrTableNotAvailable
		}
		return database.TableOrder{}, fmt.Errorf("occupy table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.TableOrder{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.Publish(ChangeEvent{Entity: EntityTable, Action: ActionStatusChanged, ID: req.TableID, RestaurantID: req.RestaurantID})
	s.notifier.Publish(ChangeEvent{Entity: EntityTableOrder, Action: ActionCreated, ID: order.ID, RestaurantID: req.RestaurantID})
	return order, nil
}

type OpenCounterSaleRequest struct {
	RestaurantID  uuid.UUID
	CustomerCount int32
	WaiterName    string
}

// OpenCounterSale opens a quick sale with no table; no table state is touched.
func (s *TableService) OpenCounterSale(ctx context.Context, req OpenCounterSaleRequest) (database.TableOrder, error) {
	if req.CustomerCount < 1 {
		return database.TableOrder{}, ErrInvalidCustomerCount
	}
	order, err := s.store.CreateTableOrder(ctx, database.CreateTableOrderParams{
		RestaurantID:  req.RestaurantID,
		TableID:       pgtype.UUID{},
		WaiterName:    textOrNull(req.WaiterName),
		CustomerCount: req.CustomerCount,
	})
	if err != nil {
		return database.TableOrder{}, fmt.Errorf("create counter sale: %w", err)
	}
	s.notifier.Publish(ChangeEvent{Entity: EntityTableOrder, Action: ActionCreated, ID: order.ID, RestaurantID: req.RestaurantID})
	return order, nil
}

// --- Lifecycle: items ---

type AddItemRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	ProductID    string
	ProductName  string
	Quantity     int32
	UnitPrice    string
	Observation  string
}

type AddItemResult struct {
	Item  database.TableOrderItem
	Order database.TableOrder
}

// AddItem appends an item to an open order and bumps the order's money
// fields atomically. Two waiters adding to the same order concurrently are
// both reflected because the subtotal update is a single guarded statement.
func (s *TableService) AddItem(ctx context.Context, req AddItemRequest) (*AddItemResult, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if req.ProductName == "" {
		return nil, ErrEmptyProductName
	}
	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil || unitPrice.IsNegative() {
		return nil, ErrInvalidUnitPrice
	}
	productID := pgtype.UUID{}
	if req.ProductID != "" {
		pid, err := uuid.Parse(req.ProductID)
		if err != nil {
			return nil, ErrInvalidProductID
		}
		productID = pgtype.UUID{Bytes: pid, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetTableOrder(ctx, database.GetTableOrderParams{ID: req.OrderID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.TableOrderStatusOpen {
		return nil, ErrOrderNotOpen
	}

	item, err := store.CreateTableOrderItem(ctx, database.CreateTableOrderItemParams{
		TableOrderID: req.OrderID,
		ProductID:    productID,
		ProductName:  req.ProductName,
		Quantity:     req.Quantity,
		UnitPrice:    decimalToNumeric(unitPrice),
		Observation:  textOrNull(req.Observation),
	})
	if err != nil {
		return nil, fmt.Errorf("create order item: %w", err)
	}

	delta := unitPrice.Mul(decimal.NewFromInt32(req.Quantity))
	updated, err := store.AddToOrderSubtotal(ctx, database.AddToOrderSubtotalParams{
		ID:    req.OrderID,
		Delta: decimalToNumeric(delta),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Order closed between the read and the write; drop the item.
			return nil, ErrOrderNotOpen
		}
		return nil, fmt.Errorf("update order subtotal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.Publish(ChangeEvent{Entity: EntityOrderItem, Action: ActionCreated, ID: item.ID, RestaurantID: req.RestaurantID})
	s.notifier.Publish(ChangeEvent{Entity: EntityTableOrder, Action: ActionUpdated, ID: order.ID, RestaurantID: req.RestaurantID})
	return &AddItemResult{Item: item, Order: updated}, nil
}

type UpdateItemStatusRequest struct {
	RestaurantID uuid.UUID
	ItemID       uuid.UUID
	Status       string
}

// UpdateItemStatus moves an item along pending → preparing → ready →
// delivered (cancelled from pending/preparing). The write is a
// compare-and-set against the status that was read, so a stale client can
// never regress an item; repeating an already-applied transition succeeds
// idempotently. Cancellation also takes the item off the bill, so it runs
// in its own transaction.
func (s *TableService) UpdateItemStatus(ctx context.Context, req UpdateItemStatusRequest) (database.TableOrderItem, error) {
	if !isKnownStatus(orderItemTransitions, req.Status, enum.OrderItemStatusDelivered, enum.OrderItemStatusCancelled) {
		return database.TableOrderItem{}, ErrInvalidStatus
	}

	if req.Status == enum.OrderItemStatusCancelled {
		return s.cancelItem(ctx, req)
	}

	item, err := s.store.GetTableOrderItem(ctx, database.GetTableOrderItemParams{ID: req.ItemID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.TableOrderItem{}, ErrItemNotFound
		}
		return database.TableOrderItem{}, fmt.Errorf("get order item: %w", err)
	}

	if item.Status == req.Status {
		return item, nil
	}
	if !canTransition(orderItemTransitions, item.Status, req.Status) {
		return database.TableOrderItem{}, ErrIllegalTransition
	}

	updated, err := s.store.SetOrderItemStatus(ctx, database.SetOrderItemStatusParams{
		ID:            req.ItemID,
		RestaurantID:  req.RestaurantID,
		Status:        req.Status,
		CurrentStatus: item.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone moved the item since our read. If they applied the same
			// transition, this call already took effect.
			current, getErr := s.store.GetTableOrderItem(ctx, database.GetTableOrderItemParams{ID: req.ItemID, RestaurantID: req.RestaurantID})
			if getErr == nil && current.Status == req.Status {
				return current, nil
			}
			return database.TableOrderItem{}, ErrStatusChanged
		}
		return database.TableOrderItem{}, fmt.Errorf("set order item status: %w", err)
	}

	s.notifier.Publish(ChangeEvent{Entity: EntityOrderItem, Action: ActionStatusChanged, ID: updated.ID, RestaurantID: req.RestaurantID})
	return updated, nil
}

// cancelItem voids a single item and deducts its value from the parent
// order in one transaction, keeping the stored subtotal equal to the sum of
// non-cancelled items while the bill is still live.
func (s *TableService) cancelItem(ctx context.Context, req UpdateItemStatusRequest) (database.TableOrderItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.TableOrderItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.GetTableOrderItem(ctx, database.GetTableOrderItemParams{ID: req.ItemID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.TableOrderItem{}, ErrItemNotFound
		}
		return database.TableOrderItem{}, fmt.Errorf("get order item: %w", err)
	}

	if item.Status == enum.OrderItemStatusCancelled {
		return item, nil
	}
	if !canTransition(orderItemTransitions, item.Status, enum.OrderItemStatusCancelled) {
		return database.TableOrderItem{}, ErrIllegalTransition
	}

	updated, err := store.SetOrderItemStatus(ctx, database.SetOrderItemStatusParams{
		ID:            req.ItemID,
		RestaurantID:  req.RestaurantID,
		Status:        enum.OrderItemStatusCancelled,
		CurrentStatus: item.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone moved the item since our read. If they cancelled it,
			// they already took it off the bill.
			current, getErr := s.store.GetTableOrderItem(ctx, database.GetTableOrderItemParams{ID: req.ItemID, RestaurantID: req.RestaurantID})
			if getErr == nil && current.Status == enum.OrderItemStatusCancelled {
				return current, nil
			}
			return database.TableOrderItem{}, ErrStatusChanged
		}
		return database.TableOrderItem{}, fmt.Errorf("set order item status: %w", err)
	}

	amount := numericToDecimal(item.UnitPrice).Mul(decimal.NewFromInt32(item.Quantity))
	order, err := store.DeductFromOrderSubtotal(ctx, database.DeductFromOrderSubtotalParams{
		ID:     item.TableOrderID,
		Amount: decimalToNumeric(amount),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The bill has been settled or voided; too late to change it.
			return database.TableOrderItem{}, s.classifyOrderMiss(ctx, req.RestaurantID, item.TableOrderID)
		}
		return database.TableOrderItem{}, fmt.Errorf("deduct order subtotal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.TableOrderItem{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.Publish(ChangeEvent{Entity: EntityOrderItem, Action: ActionStatusChanged, ID: updated.ID, RestaurantID: req.RestaurantID})
	s.notifier.Publish(ChangeEvent{Entity: EntityTableOrder, Action: ActionUpdated, ID: order.ID, RestaurantID: req.RestaurantID})
	return updated, nil
}

// --- Lifecycle: bill and close ---

type RequestBillRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
}

func (s *TableService) RequestBill(ctx context.Context, req RequestBillRequest) (database.TableOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.TableOrder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.MarkOrderRequestingBill(ctx, database.MarkOrderRequestingBillParams{ID: req.OrderID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.TableOrder{}, s.classifyOrderMiss(ctx, req.RestaurantID, req.OrderID)
		}
		return database.TableOrder{}, fmt.Errorf("mark order requesting bill: %w", err)
	}

	if order.TableID.Valid {
		if _, err := store.MarkTableRequestingBill(ctx, database.MarkTableRequestingBillParams{
			ID:      order.TableID.Bytes,
			OrderID: order.ID,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.TableOrder{}, ErrStatusChanged
			}
			return database.TableOrder{}, fmt.Errorf("mark table requesting bill: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.TableOrder{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.Publish(ChangeEvent{Entity: EntityTableOrder, Action: ActionStatusChanged, ID: order.ID, RestaurantID: req.RestaurantID})
	if order.TableID.Valid {
		s.notifier.Publish(ChangeEvent{Entity: EntityTable, Action: ActionStatusChanged, ID: order.TableID.Bytes, RestaurantID: req.RestaurantID})
	}
	return order, nil
}

type CloseTableRequest struct {
	RestaurantID         uuid.UUID
	OrderID              uuid.UUID
	PaymentMethod        string
	Discount             string
	DiscountType         string
	ServiceFeeEnabled    bool
	ServiceFeePercentage string
	TotalAmount          string
}

// CloseTable marks the order paid and frees its table in one transaction.
// The total is recomputed server-side from the order's non-cancelled items;
// the client-submitted total is only accepted as a cross-check, and on
// disagreement beyond a cent the server value wins.
func (s *TableService) CloseTable(ctx context.Context, req CloseTableRequest) (database.TableOrder, error) {
	if req.PaymentMethod == "" {
		return database.TableOrder{}, ErrEmptyPaymentMethod
	}
	discountType := req.DiscountType
	if discountType == "" {
		discountType = enum.DiscountTypeValue
	}
	if discountType != enum.DiscountTypeValue && discountType != enum.DiscountTypePercentage {
		return database.TableOrder{}, ErrInvalidDiscountType
	}
	discount, err := parseMoney(req.Discount, decimal.Zero)
	if err != nil || discount.IsNegative() {
		return database.TableOrder{}, ErrInvalidDiscount
	}
	feePct, err := parseMoney(req.ServiceFeePercentage, decimal.Zero)
	if err != nil || feePct.IsNegative() {
		return database.TableOrder{}, ErrInvalidServiceFee
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.TableOrder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetTableOrder(ctx, database.GetTableOrderParams{ID: req.OrderID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.TableOrder{}, ErrOrderNotFound
		}
		return database.TableOrder{}, fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.TableOrderStatusPaid || order.Status == enum.TableOrderStatusCancelled {
		return database.TableOrder{}, ErrOrderClosed
	}

	sum, err := store.SumTableOrderItems(ctx, order.ID)
	if err != nil {
		return database.TableOrder{}, fmt.Errorf("sum order items: %w", err)
	}
	subtotal := numericToDecimal(sum)
	total := computeTotal(subtotal, discount, discountType, req.ServiceFeeEnabled, feePct)

	if req.TotalAmount != "" {
		clientTotal, err := decimal.NewFromString(req.TotalAmount)
		if err != nil {
			return database.TableOrder{}, ErrInvalidTotalAmount
		}
		if clientTotal.Sub(total).Abs().GreaterThan(closeTolerance) {
			log.Printf("close order %s: client total %s disagrees with computed %s, using computed",
				order.ID, clientTotal.StringFixed(2), total.StringFixed(2))
		}
	}

	closed, err := store.CloseTableOrder(ctx, database.CloseTableOrderParams{
		ID:                   order.ID,
		RestaurantID:         req.RestaurantID,
		PaymentMethod:        req.PaymentMethod,
		Subtotal:             decimalToNumeric(subtotal),
		Discount:             decimalToNumeric(discount),
		DiscountType:         discountType,
		ServiceFeeEnabled:    req.ServiceFeeEnabled,
		ServiceFeePercentage: decimalToNumeric(feePct),
		TotalAmount:          decimalToNumeric(total),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.TableOrder{}, ErrOrderClosed
		}
		return database.TableOrder{}, fmt.Errorf("close order: %w", err)
	}

	if order.TableID.Valid {
		if _, err := store.FreeTable(ctx, database.FreeTableParams{
			ID:      order.TableID.Bytes,
			OrderID: order.ID,
		}); err != nil {
			// The order must not end up paid with its table still held.
			return database.TableOrder{}, fmt.Errorf("free table: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.TableOrder{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.Publish(ChangeEvent{Entity: EntityTableOrder, Action: ActionStatusChanged, ID: closed.ID, RestaurantID: req.RestaurantID})
	if order.TableID.Valid {
		s.notifier.Publish(ChangeEvent{Entity: EntityTable, Action: ActionStatusChanged, ID: order.TableID.Bytes, RestaurantID: req.RestaurantID})
	}
	return closed, nil
}

type CancelOrderRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
}

// CancelOrder voids an open order: pending and preparing items are
// cancelled, delivered and ready items keep their status for the record,
// and the table (if any) is freed. Only open orders can be cancelled.
func (s *TableService) CancelOrder(ctx context.Context, req CancelOrderRequest) (database.TableOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.TableOrder{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.CancelTableOrder(ctx, database.CancelTableOrderParams{ID: req.OrderID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.TableOrder{}, s.classifyOrderMiss(ctx, req.RestaurantID, req.OrderID)
		}
		return database.TableOrder{}, fmt.Errorf("cancel order: %w", err)
	}

	// No subtotal adjustment here: the order is now terminal, so its money
	// fields stop being a live bill and keep the last charged amounts.
	if _, err := store.CancelPendingItems(ctx, order.ID); err != nil {
		return database.TableOrder{}, fmt.Errorf("cancel pending items: %w", err)
	}

	if order.TableID.Valid {
		if _, err := store.FreeTable(ctx, database.FreeTableParams{
			ID:      order.TableID.Bytes,
			OrderID: order.ID,
		}); err != nil {
			return database.TableOrder{}, fmt.Errorf("free table: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.TableOrder{}, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.Publish(ChangeEvent{Entity: EntityTableOrder, Action: ActionStatusChanged, ID: order.ID, RestaurantID: req.RestaurantID})
	if order.TableID.Valid {
		s.notifier.Publish(ChangeEvent{Entity: EntityTable, Action: ActionStatusChanged, ID: order.TableID.Bytes, RestaurantID: req.RestaurantID})
	}
	return order, nil
}

// classifyOrderMiss distinguishes a missing order from one whose status
// precondition failed, after a guarded write matched nothing.
func (s *TableService) classifyOrderMiss(ctx context.Context, restaurantID, orderID uuid.UUID) error {
	order, err := s.store.GetTableOrder(ctx, database.GetTableOrderParams{ID: orderID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.TableOrderStatusPaid || order.Status == enum.TableOrderStatusCancelled {
		return ErrOrderClosed
	}
	return ErrOrderNotOpen
}

// --- Helpers ---

// computeTotal applies the charge formula:
// total = subtotal − discount(±type) + service fee, floored at zero.
func computeTotal(subtotal, discount decimal.Decimal, discountType string, feeEnabled bool, feePct decimal.Decimal) decimal.Decimal {
	discountAmount := discount
	if discountType == enum.DiscountTypePercentage {
		discountAmount = subtotal.Mul(discount).Div(decimal.NewFromInt(100))
	}
	net := subtotal.Sub(discountAmount)
	total := net
	if feeEnabled {
		total = net.Add(net.Mul(feePct).Div(decimal.NewFromInt(100)))
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

func parseMoney(s string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return fallback, nil
	}
	return decimal.NewFromString(s)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	// StringFixed always yields a plain fixed-point literal, which Numeric.Scan
	// accepts unconditionally.
	_ = n.Scan(d.StringFixed(2))
	return n
}
