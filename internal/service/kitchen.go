package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mesalivre/api/internal/database"
	"github.com/mesalivre/api/internal/enum"
)

// KitchenStore defines the read the projector needs.
// Satisfied by *database.Queries.
type KitchenStore interface {
	ListKitchenItems(ctx context.Context, arg database.ListKitchenItemsParams) ([]database.KitchenItemRow, error)
}

// KitchenItem is one card on the kitchen display, merged across dine-in and
// delivery orders.
type KitchenItem struct {
	ID             uuid.UUID `json:"id"`
	OrderType      string    `json:"order_type"`
	OrderID        uuid.UUID `json:"order_id"`
	TableNumber    *int32    `json:"table_number,omitempty"`
	ProductName    string    `json:"product_name"`
	Quantity       int32     `json:"quantity"`
	Observation    *string   `json:"observation,omitempty"`
	Status         string    `json:"status"`
	OrderedAt      time.Time `json:"ordered_at"`
	WaiterName     *string   `json:"waiter_name,omitempty"`
	CustomerName   *string   `json:"customer_name,omitempty"`
	WaitingSeconds int64     `json:"waiting_seconds"`
}

// KitchenService projects the queue of items awaiting kitchen action.
// It is read-only and stateless: the queue is recomputed from the store on
// every call, so a refresh after any write is always consistent.
type KitchenService struct {
	store KitchenStore
	now   func() time.Time
}

func NewKitchenService(store KitchenStore) *KitchenService {
	return &KitchenService{store: store, now: time.Now}
}

// Queue returns the items awaiting kitchen action, oldest ordered_at first.
// includeReady widens the view for expediting screens that also show plated
// items waiting for pickup. waiting_seconds is display-only urgency input;
// nothing transitions on it.
func (s *KitchenService) Queue(ctx context.Context, restaurantID uuid.UUID, includeReady bool) ([]KitchenItem, error) {
	statuses := []string{enum.OrderItemStatusPending, enum.OrderItemStatusPreparing}
	if includeReady {
		statuses = append(statuses, enum.OrderItemStatusReady)
	}

	rows, err := s.store.ListKitchenItems(ctx, database.ListKitchenItemsParams{
		RestaurantID: restaurantID,
		Statuses:     statuses,
	})
	if err != nil {
		return nil, fmt.Errorf("list kitchen items: %w", err)
	}

	now := s.now()
	items := make([]KitchenItem, len(rows))
	for i, row := range rows {
		item := KitchenItem{
			ID:             row.ID,
			OrderType:      row.OrderType,
			OrderID:        row.OrderID,
			ProductName:    row.ProductName,
			Quantity:       row.Quantity,
			Status:         row.Status,
			OrderedAt:      row.OrderedAt,
			WaitingSeconds: int64(now.Sub(row.OrderedAt).Seconds()),
		}
		if item.WaitingSeconds < 0 {
			item.WaitingSeconds = 0
		}
		if row.TableNumber.Valid {
			n := row.TableNumber.Int32
			item.TableNumber = &n
		}
		if row.Observation.Valid {
			o := row.Observation.String
			item.Observation = &o
		}
		if row.WaiterName.Valid {
			w := row.WaiterName.String
			item.WaiterName = &w
		}
		if row.CustomerName.Valid {
			c := row.CustomerName.String
			item.CustomerName = &c
		}
		items[i] = item
	}
	return items, nil
}
