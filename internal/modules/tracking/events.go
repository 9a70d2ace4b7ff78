// README: Wire payloads for the tracking channel.
package tracking

import (
	"encoding/json"
	"log"
	"time"

	"skyeats/internal/types"
)

// Position is a single drone position report.
type Position struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type inboundPayload struct {
	Action   string    `json:"action"` // "report"
	Position *Position `json:"position,omitempty"`
}

type outboundPayload struct {
	Event     string         `json:"event"` // "position", "assigned"
	OrderID   types.ID       `json:"order_id"`
	Position  *Position      `json:"position,omitempty"`
	Assigned  *AssignedEvent `json:"assigned,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AssignedEvent tells the newly-assigned drone where to fly before its first
// position report arrives. The confirmation code is deliberately absent: it
// travels only in the operator's assign response.
type AssignedEvent struct {
	DroneID            types.ID    `json:"drone_id"`
	ShopCoordinates    types.Point `json:"shop_coordinates"`
	TargetAddress      string      `json:"target_address"`
	TargetCoordinates  types.Point `json:"target_coordinates"`
	DeliveryDistanceKm float64     `json:"delivery_distance_km"`
}

// PublishPosition relays a position report to the order's room.
func (h *Hub) PublishPosition(orderID types.ID, pos Position) {
	h.publishEvent(outboundPayload{
		Event:     "position",
		OrderID:   orderID,
		Position:  &pos,
		Timestamp: time.Now(),
	})
}

// PublishAssigned announces a fresh assignment to the order's room.
func (h *Hub) PublishAssigned(orderID types.ID, ev AssignedEvent) {
	h.publishEvent(outboundPayload{
		Event:     "assigned",
		OrderID:   orderID,
		Assigned:  &ev,
		Timestamp: time.Now(),
	})
}

func (h *Hub) publishEvent(p outboundPayload) {
	data, err := json.Marshal(p)
	if err != nil {
		log.Printf("tracking: marshal %s event for order %s: %v", p.Event, p.OrderID, err)
		return
	}
	h.Publish(p.OrderID, data)
}
