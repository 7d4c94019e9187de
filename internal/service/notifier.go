package service

import "github.com/google/uuid"

// Entities and actions carried by change events.
const (
	EntityTable         = "table"
	EntityTableOrder    = "table_order"
	EntityOrderItem     = "order_item"
	EntityDeliveryOrder = "delivery_order"
	EntityDeliveryItem  = "delivery_item"

	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionDeleted       = "deleted"
	ActionStatusChanged = "status_changed"
)

// ChangeEvent tells subscribed screens (kitchen, waiter, table map) which
// entity changed so they can refetch. It carries no entity payload: every
// projection re-reads from the store, which is the single source of truth.
type ChangeEvent struct {
	Entity       string    `json:"entity"`
	Action       string    `json:"action"`
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
}

// Notifier fans a change event out to everything watching the restaurant.
// Satisfied by ws.Relay. Publish must not block the mutation path.
type Notifier interface {
	Publish(event ChangeEvent)
}

// NopNotifier drops events. Used by tests and offline tooling.
type NopNotifier struct{}

func (NopNotifier) Publish(ChangeEvent) {}
