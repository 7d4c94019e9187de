package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mesalivre/api/internal/database"
)

// Errors returned by the pin service.
var (
	ErrPinMismatch        = errors.New("incorrect PIN")
	ErrWaiterNotFound     = errors.New("waiter not found")
	ErrRestaurantNotFound = errors.New("restaurant not found")
)

// PinStore defines the reads the pin gates need.
// Satisfied by *database.Queries.
type PinStore interface {
	GetKitchenPin(ctx context.Context, restaurantID uuid.UUID) (database.GetKitchenPinRow, error)
	GetWaiter(ctx context.Context, arg database.GetWaiterParams) (database.Waiter, error)
}

// PinService gates kitchen-display and waiter-app access behind short
// numeric PINs. PINs are stored and compared in plaintext; they are
// shoulder-surfable screen locks, not credentials, and there is no lockout.
type PinService struct {
	store PinStore
}

func NewPinService(store PinStore) *PinService {
	return &PinService{store: store}
}

// KitchenPinResult is the two-step challenge response: when the gate is
// enabled and no PIN was supplied, PinRequired tells the client to prompt.
type KitchenPinResult struct {
	PinRequired bool `json:"pin_required"`
	Success     bool `json:"success"`
}

func (s *PinService) VerifyKitchenPin(ctx context.Context, restaurantID uuid.UUID, pin string) (KitchenPinResult, error) {
	row, err := s.store.GetKitchenPin(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return KitchenPinResult{}, ErrRestaurantNotFound
		}
		return KitchenPinResult{}, fmt.Errorf("get kitchen pin: %w", err)
	}

	if !row.KitchenPinEnabled || !row.KitchenPin.Valid {
		return KitchenPinResult{Success: true}, nil
	}
	if pin == "" {
		return KitchenPinResult{PinRequired: true}, nil
	}
	if pin != row.KitchenPin.String {
		return KitchenPinResult{}, ErrPinMismatch
	}
	return KitchenPinResult{Success: true}, nil
}

// WaiterPinResult identifies the waiter whose PIN checked out.
type WaiterPinResult struct {
	PinRequired bool      `json:"pin_required,omitempty"`
	WaiterID    uuid.UUID `json:"waiter_id,omitempty"`
	WaiterName  string    `json:"waiter_name,omitempty"`
}

func (s *PinService) VerifyWaiterPin(ctx context.Context, restaurantID, waiterID uuid.UUID, pin string) (WaiterPinResult, error) {
	waiter, err := s.store.GetWaiter(ctx, database.GetWaiterParams{ID: waiterID, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WaiterPinResult{}, ErrWaiterNotFound
		}
		return WaiterPinResult{}, fmt.Errorf("get waiter: %w", err)
	}
	if !waiter.IsActive {
		return WaiterPinResult{}, ErrWaiterNotFound
	}

	if pin == "" {
		return WaiterPinResult{PinRequired: true}, nil
	}
	if pin != waiter.Pin {
		return WaiterPinResult{}, ErrPinMismatch
	}
	return WaiterPinResult{WaiterID: waiter.ID, WaiterName: waiter.Name}, nil
}
