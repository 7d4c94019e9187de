package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mesalivre/api/internal/database"
	"github.com/mesalivre/api/internal/enum"
)

// mockDeliveryStore implements DeliveryStore with configurable behavior.
type mockDeliveryStore struct {
	createDeliveryOrderFn     func(ctx context.Context, arg database.CreateDeliveryOrderParams) (database.DeliveryOrder, error)
	createDeliveryOrderItemFn func(ctx context.Context, arg database.CreateDeliveryOrderItemParams) (database.DeliveryOrderItem, error)
	getDeliveryOrderFn        func(ctx context.Context, arg database.GetDeliveryOrderParams) (database.DeliveryOrder, error)
	setDeliveryStatusFn       func(ctx context.Context, arg database.SetDeliveryStatusParams) (database.DeliveryOrder, error)
	getDeliveryOrderItemFn    func(ctx context.Context, arg database.GetDeliveryOrderItemParams) (database.DeliveryOrderItem, error)
	setDeliveryItemStatusFn   func(ctx context.Context, arg database.SetDeliveryItemStatusParams) (database.DeliveryOrderItem, error)
}

func (m *mockDeliveryStore) CreateDeliveryOrder(ctx context.Context, arg database.CreateDeliveryOrderParams) (database.DeliveryOrder, error) {
	return m.createDeliveryOrderFn(ctx, arg)
}
func (m *mockDeliveryStore) CreateDeliveryOrderItem(ctx context.Context, arg database.CreateDeliveryOrderItemParams) (database.DeliveryOrderItem, error) {
	return m.createDeliveryOrderItemFn(ctx, arg)
}
func (m *mockDeliveryStore) GetDeliveryOrder(ctx context.Context, arg database.GetDeliveryOrderParams) (database.DeliveryOrder, error) {
	return m.getDeliveryOrderFn(ctx, arg)
}
func (m *mockDeliveryStore) SetDeliveryStatus(ctx context.Context, arg database.SetDeliveryStatusParams) (database.DeliveryOrder, error) {
	return m.setDeliveryStatusFn(ctx, arg)
}
func (m *mockDeliveryStore) GetDeliveryOrderItem(ctx context.Context, arg database.GetDeliveryOrderItemParams) (database.DeliveryOrderItem, error) {
	return m.getDeliveryOrderItemFn(ctx, arg)
}
func (m *mockDeliveryStore) SetDeliveryItemStatus(ctx context.Context, arg database.SetDeliveryItemStatusParams) (database.DeliveryOrderItem, error) {
	return m.setDeliveryItemStatusFn(ctx, arg)
}

func newTestDeliveryService(store *mockDeliveryStore) (*DeliveryService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) DeliveryStore { return store }
	return NewDeliveryService(store, pool, newStore, nil), tx
}

func deliveryReq(restaurantID uuid.UUID) CreateDeliveryOrderRequest {
	return CreateDeliveryOrderRequest{
		RestaurantID:  restaurantID,
		CustomerName:  "Bruno",
		CustomerPhone: "11 99999-0000",
		Address:       "Rua das Flores, 123",
		PaymentMethod: enum.PaymentMethodPix,
		DeliveryFee:   "8.00",
		Items: []CreateDeliveryItemRequest{
			{ProductName: "Marmita", Quantity: 2, UnitPrice: "25.00"},
			{ProductName: "Guaraná", Quantity: 1, UnitPrice: "6.50"},
		},
	}
}

func TestCreateDeliveryOrder_TotalsFromItems(t *testing.T) {
	restaurantID := uuid.New()
	orderID := uuid.New()

	var createArg database.CreateDeliveryOrderParams
	itemsCreated := 0
	store := &mockDeliveryStore{
		createDeliveryOrderFn: func(ctx context.Context, arg database.CreateDeliveryOrderParams) (database.DeliveryOrder, error) {
			createArg = arg
			return database.DeliveryOrder{
				ID:           orderID,
				RestaurantID: arg.RestaurantID,
				CustomerName: arg.CustomerName,
				Status:       enum.DeliveryStatusPending,
				Subtotal:     arg.Subtotal,
				DeliveryFee:  arg.DeliveryFee,
				TotalAmount:  arg.TotalAmount,
			}, nil
		},
		createDeliveryOrderItemFn: func(ctx context.Context, arg database.CreateDeliveryOrderItemParams) (database.DeliveryOrderItem, error) {
			if arg.DeliveryOrderID != orderID {
				t.Fatalf("item created against wrong order")
			}
			itemsCreated++
			return database.DeliveryOrderItem{ID: uuid.New(), DeliveryOrderID: arg.DeliveryOrderID, Status: enum.DeliveryItemStatusPending}, nil
		},
	}
	svc, tx := newTestDeliveryService(store)

	result, err := svc.CreateDeliveryOrder(context.Background(), deliveryReq(restaurantID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2×25.00 + 6.50 = 56.50, plus fee 8.00
	if !numericEquals(createArg.Subtotal, "56.50") {
		t.Fatalf("expected subtotal 56.50, got %v", numericToDecimal(createArg.Subtotal))
	}
	if !numericEquals(createArg.TotalAmount, "64.50") {
		t.Fatalf("expected total 64.50, got %v", numericToDecimal(createArg.TotalAmount))
	}
	if itemsCreated != 2 {
		t.Fatalf("expected 2 items, got %d", itemsCreated)
	}
	if result.Order.Status != enum.DeliveryStatusPending {
		t.Fatalf("new delivery orders start pending, got %s", result.Order.Status)
	}
	if !tx.committed {
		t.Fatal("expected transaction to commit")
	}
}

func TestCreateDeliveryOrder_MissingAddress(t *testing.T) {
	svc, _ := newTestDeliveryService(&mockDeliveryStore{})

	req := deliveryReq(uuid.New())
	req.Address = ""
	_, err := svc.CreateDeliveryOrder(context.Background(), req)
	if !errors.Is(err, ErrEmptyAddress) {
		t.Fatalf("expected ErrEmptyAddress, got: %v", err)
	}
}

func TestCreateDeliveryOrder_BadItem(t *testing.T) {
	svc, _ := newTestDeliveryService(&mockDeliveryStore{})

	req := deliveryReq(uuid.New())
	req.Items[1].Quantity = 0
	_, err := svc.CreateDeliveryOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestUpdateDeliveryStatus_HappyPath(t *testing.T) {
	restaurantID := uuid.New()
	orderID := uuid.New()
	store := &mockDeliveryStore{
		getDeliveryOrderFn: func(ctx context.Context, arg database.GetDeliveryOrderParams) (database.DeliveryOrder, error) {
			return database.DeliveryOrder{ID: orderID, RestaurantID: restaurantID, Status: enum.DeliveryStatusPreparing}, nil
		},
		setDeliveryStatusFn: func(ctx context.Context, arg database.SetDeliveryStatusParams) (database.DeliveryOrder, error) {
			if arg.CurrentStatus != enum.DeliveryStatusPreparing {
				t.Fatalf("compare-and-set must guard on the read status, got %s", arg.CurrentStatus)
			}
			return database.DeliveryOrder{ID: orderID, Status: arg.Status}, nil
		},
	}
	svc, _ := newTestDeliveryService(store)

	order, err := svc.UpdateDeliveryStatus(context.Background(), UpdateDeliveryStatusRequest{
		RestaurantID: restaurantID,
		OrderID:      orderID,
		Status:       enum.DeliveryStatusDelivery,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != enum.DeliveryStatusDelivery {
		t.Fatalf("expected delivery, got %s", order.Status)
	}
}

func TestUpdateDeliveryStatus_CompletedIsTerminal(t *testing.T) {
	store := &mockDeliveryStore{
		getDeliveryOrderFn: func(ctx context.Context, arg database.GetDeliveryOrderParams) (database.DeliveryOrder, error) {
			return database.DeliveryOrder{ID: arg.ID, Status: enum.DeliveryStatusCompleted}, nil
		},
	}
	svc, _ := newTestDeliveryService(store)

	_, err := svc.UpdateDeliveryStatus(context.Background(), UpdateDeliveryStatusRequest{
		RestaurantID: uuid.New(),
		OrderID:      uuid.New(),
		Status:       enum.DeliveryStatusCancelled,
	})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got: %v", err)
	}
}

func TestUpdateDeliveryStatus_CancelFromDelivery(t *testing.T) {
	store := &mockDeliveryStore{
		getDeliveryOrderFn: func(ctx context.Context, arg database.GetDeliveryOrderParams) (database.DeliveryOrder, error) {
			return database.DeliveryOrder{ID: arg.ID, Status: enum.DeliveryStatusDelivery}, nil
		},
		setDeliveryStatusFn: func(ctx context.Context, arg database.SetDeliveryStatusParams) (database.DeliveryOrder, error) {
			return database.DeliveryOrder{ID: arg.ID, Status: arg.Status}, nil
		},
	}
	svc, _ := newTestDeliveryService(store)

	order, err := svc.UpdateDeliveryStatus(context.Background(), UpdateDeliveryStatusRequest{
		RestaurantID: uuid.New(),
		OrderID:      uuid.New(),
		Status:       enum.DeliveryStatusCancelled,
	})
	if err != nil {
		t.Fatalf("a rider can still turn back: %v", err)
	}
	if order.Status != enum.DeliveryStatusCancelled {
		t.Fatalf("expected cancelled, got %s", order.Status)
	}
}

func TestUpdateDeliveryItemStatus_ReadyIsTerminal(t *testing.T) {
	store := &mockDeliveryStore{
		getDeliveryOrderItemFn: func(ctx context.Context, arg database.GetDeliveryOrderItemParams) (database.DeliveryOrderItem, error) {
			return database.DeliveryOrderItem{ID: arg.ID, Status: enum.DeliveryItemStatusReady}, nil
		},
	}
	svc, _ := newTestDeliveryService(store)

	_, err := svc.UpdateDeliveryItemStatus(context.Background(), UpdateDeliveryItemStatusRequest{
		RestaurantID: uuid.New(),
		ItemID:       uuid.New(),
		Status:       enum.DeliveryItemStatusPreparing,
	})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got: %v", err)
	}
}

func TestUpdateDeliveryItemStatus_ConcurrentSameTransition(t *testing.T) {
	itemID := uuid.New()
	reads := 0
	store := &mockDeliveryStore{
		getDeliveryOrderItemFn: func(ctx context.Context, arg database.GetDeliveryOrderItemParams) (database.DeliveryOrderItem, error) {
			reads++
			if reads == 1 {
				return database.DeliveryOrderItem{ID: itemID, Status: enum.DeliveryItemStatusPending}, nil
			}
			return database.DeliveryOrderItem{ID: itemID, Status: enum.DeliveryItemStatusPreparing}, nil
		},
		setDeliveryItemStatusFn: func(ctx context.Context, arg database.SetDeliveryItemStatusParams) (database.DeliveryOrderItem, error) {
			return database.DeliveryOrderItem{}, pgx.ErrNoRows
		},
	}
	svc, _ := newTestDeliveryService(store)

	item, err := svc.UpdateDeliveryItemStatus(context.Background(), UpdateDeliveryItemStatusRequest{
		RestaurantID: uuid.New(),
		ItemID:       itemID,
		Status:       enum.DeliveryItemStatusPreparing,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Status != enum.DeliveryItemStatusPreparing {
		t.Fatalf("expected preparing, got %s", item.Status)
	}
}
