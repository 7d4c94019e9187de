package ws

import (
	"encoding/json"
	"log"

	"github.com/mesalivre/api/internal/service"
)

// Relay adapts the hub to the service layer's Notifier contract, so the
// services stay transport-agnostic. Event type on the wire is
// "<entity>.<action>", e.g. "order_item.status_changed".
type Relay struct {
	hub *Hub
}

func NewRelay(hub *Hub) *Relay {
	return &Relay{hub: hub}
}

func (r *Relay) Publish(event service.ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: marshal change event: %v", err)
		return
	}
	r.hub.BroadcastToRestaurant(event.RestaurantID, Event{
		Type:    event.Entity + "." + event.Action,
		Payload: payload,
	})
}
