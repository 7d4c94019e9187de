package service

import "github.com/mesalivre/api/internal/enum"

// Allowed status edges, keyed by current status. Anything not listed is an
// illegal transition, including every backward move.

var orderItemTransitions = map[string][]string{
	enum.OrderItemStatusPending:   {enum.OrderItemStatusPreparing, enum.OrderItemStatusCancelled},
	enum.OrderItemStatusPreparing: {enum.OrderItemStatusReady, enum.OrderItemStatusCancelled},
	enum.OrderItemStatusReady:     {enum.OrderItemStatusDelivered},
}

var deliveryOrderTransitions = map[string][]string{
	enum.DeliveryStatusPending:   {enum.DeliveryStatusPreparing, enum.DeliveryStatusCancelled},
	enum.DeliveryStatusPreparing: {enum.DeliveryStatusDelivery, enum.DeliveryStatusCancelled},
	enum.DeliveryStatusDelivery:  {enum.DeliveryStatusCompleted, enum.DeliveryStatusCancelled},
}

var deliveryItemTransitions = map[string][]string{
	enum.DeliveryItemStatusPending:   {enum.DeliveryItemStatusPreparing},
	enum.DeliveryItemStatusPreparing: {enum.DeliveryItemStatusReady},
}

func canTransition(edges map[string][]string, from, to string) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func isKnownStatus(edges map[string][]string, s string, terminals ...string) bool {
	if _, ok := edges[s]; ok {
		return true
	}
	for _, t := range terminals {
		if s == t {
			return true
		}
	}
	return false
}
