package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mesalivre/api/internal/database"
)

type mockPinStore struct {
	getKitchenPinFn func(ctx context.Context, restaurantID uuid.UUID) (database.GetKitchenPinRow, error)
	getWaiterFn     func(ctx context.Context, arg database.GetWaiterParams) (database.Waiter, error)
}

func (m *mockPinStore) GetKitchenPin(ctx context.Context, restaurantID uuid.UUID) (database.GetKitchenPinRow, error) {
	return m.getKitchenPinFn(ctx, restaurantID)
}
func (m *mockPinStore) GetWaiter(ctx context.Context, arg database.GetWaiterParams) (database.Waiter, error) {
	return m.getWaiterFn(ctx, arg)
}

func TestVerifyKitchenPin_GateDisabled(t *testing.T) {
	store := &mockPinStore{
		getKitchenPinFn: func(ctx context.Context, id uuid.UUID) (database.GetKitchenPinRow, error) {
			return database.GetKitchenPinRow{
				KitchenPin:        pgtype.Text{String: "4321", Valid: true},
				KitchenPinEnabled: false,
			}, nil
		},
	}
	svc := NewPinService(store)

	// With the gate off, even an empty PIN passes.
	result, err := svc.VerifyKitchenPin(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.PinRequired {
		t.Fatalf("disabled gate must pass, got %+v", result)
	}
}

func TestVerifyKitchenPin_TwoStepChallenge(t *testing.T) {
	store := &mockPinStore{
		getKitchenPinFn: func(ctx context.Context, id uuid.UUID) (database.GetKitchenPinRow, error) {
			return database.GetKitchenPinRow{
				KitchenPin:        pgtype.Text{String: "4321", Valid: true},
				KitchenPinEnabled: true,
			}, nil
		},
	}
	svc := NewPinService(store)

	// Step one: no PIN supplied, client is told to prompt.
	result, err := svc.VerifyKitchenPin(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.PinRequired || result.Success {
		t.Fatalf("expected pin_required, got %+v", result)
	}

	// Step two: correct PIN unlocks.
	result, err = svc.VerifyKitchenPin(context.Background(), uuid.New(), "4321")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
}

func TestVerifyKitchenPin_Mismatch(t *testing.T) {
	store := &mockPinStore{
		getKitchenPinFn: func(ctx context.Context, id uuid.UUID) (database.GetKitchenPinRow, error) {
			return database.GetKitchenPinRow{
				KitchenPin:        pgtype.Text{String: "4321", Valid: true},
				KitchenPinEnabled: true,
			}, nil
		},
	}
	svc := NewPinService(store)

	_, err := svc.VerifyKitchenPin(context.Background(), uuid.New(), "0000")
	if !errors.Is(err, ErrPinMismatch) {
		t.Fatalf("expected ErrPinMismatch, got: %v", err)
	}
}

func TestVerifyKitchenPin_RestaurantMissing(t *testing.T) {
	store := &mockPinStore{
		getKitchenPinFn: func(ctx context.Context, id uuid.UUID) (database.GetKitchenPinRow, error) {
			return database.GetKitchenPinRow{}, pgx.ErrNoRows
		},
	}
	svc := NewPinService(store)

	_, err := svc.VerifyKitchenPin(context.Background(), uuid.New(), "4321")
	if !errors.Is(err, ErrRestaurantNotFound) {
		t.Fatalf("expected ErrRestaurantNotFound, got: %v", err)
	}
}

func TestVerifyWaiterPin_Success(t *testing.T) {
	waiterID := uuid.New()
	store := &mockPinStore{
		getWaiterFn: func(ctx context.Context, arg database.GetWaiterParams) (database.Waiter, error) {
			return database.Waiter{ID: waiterID, Name: "Ana", Pin: "1234", IsActive: true}, nil
		},
	}
	svc := NewPinService(store)

	result, err := svc.VerifyWaiterPin(context.Background(), uuid.New(), waiterID, "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WaiterID != waiterID || result.WaiterName != "Ana" {
		t.Fatalf("expected Ana, got %+v", result)
	}
}

func TestVerifyWaiterPin_InactiveHidden(t *testing.T) {
	store := &mockPinStore{
		getWaiterFn: func(ctx context.Context, arg database.GetWaiterParams) (database.Waiter, error) {
			return database.Waiter{ID: arg.ID, Name: "Ana", Pin: "1234", IsActive: false}, nil
		},
	}
	svc := NewPinService(store)

	// An inactive waiter is indistinguishable from a missing one.
	_, err := svc.VerifyWaiterPin(context.Background(), uuid.New(), uuid.New(), "1234")
	if !errors.Is(err, ErrWaiterNotFound) {
		t.Fatalf("expected ErrWaiterNotFound, got: %v", err)
	}
}

func TestVerifyWaiterPin_Mismatch(t *testing.T) {
	store := &mockPinStore{
		getWaiterFn: func(ctx context.Context, arg database.GetWaiterParams) (database.Waiter, error) {
			return database.Waiter{ID: arg.ID, Name: "Ana", Pin: "1234", IsActive: true}, nil
		},
	}
	svc := NewPinService(store)

	_, err := svc.VerifyWaiterPin(context.Background(), uuid.New(), uuid.New(), "9999")
	if !errors.Is(err, ErrPinMismatch) {
		t.Fatalf("expected ErrPinMismatch, got: %v", err)
	}
}
