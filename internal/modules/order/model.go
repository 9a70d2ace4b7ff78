// README: Order aggregate, line snapshots, and status definitions.
package order

import (
	"time"

	"skyeats/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusPreparing  Status = "preparing"
	StatusDelivering Status = "delivering"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Line is one ordered item. Item and shop display fields are value objects
// captured at order-creation time so reads never join back to the catalog;
// later catalog edits do not rewrite history.
type Line struct {
	ItemID       types.ID `json:"item_id"`
	Quantity     int      `json:"quantity"`
	UnitPrice    int64    `json:"unit_price"`
	Subtotal     int64    `json:"subtotal"`
	Note         string   `json:"note,omitempty"`
	ItemName     string   `json:"item_name"`
	ItemImage    string   `json:"item_image,omitempty"`
	ItemCategory string   `json:"item_category,omitempty"`
	ItemFoodType string   `json:"item_food_type,omitempty"`
	ShopID       types.ID `json:"shop_id"`
	ShopName     string   `json:"shop_name"`
	ShopCity     string   `json:"shop_city,omitempty"`
	ShopState    string   `json:"shop_state,omitempty"`
	ShopAddress  string   `json:"shop_address,omitempty"`
	ShopOwnerID  types.ID `json:"shop_owner_id"`
}

type DeliveryTarget struct {
	Address     string      `json:"address"`
	City        string      `json:"city,omitempty"`
	State       string      `json:"state,omitempty"`
	Coordinates types.Point `json:"coordinates"`
	Note        string      `json:"note,omitempty"`
}

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type Order struct {
	ID                  types.ID
	CustomerID          types.ID
	Lines               []Line
	TotalAmount         int64
	Target              DeliveryTarget
	Contact             Contact
	PaymentID           *types.ID
	Status              Status
	DroneID             *types.ID
	DroneBatteryPercent int
	// ConfirmCode is the one-time delivery secret; non-empty only while the
	// order is delivering.
	ConfirmCode         string
	DeliveryDistanceKm  float64
	EstimatedDeliveryAt *time.Time
	CreatedAt           time.Time
	DeliveredAt         *time.Time
	CancelledAt         *time.Time
	CancelReason        *string
}

// Event is one row of the append-only status audit trail.
type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the order lifecycle as code. Terminal
// statuses (completed, cancelled) have no outgoing edges.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusPreparing, StatusCancelled},
	StatusPreparing:  {StatusDelivering, StatusCancelled},
	StatusDelivering: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// RecomputeTotals applies the numeric rule on every line mutation:
// subtotal = unit price x quantity, total = sum of subtotals.
func (o *Order) RecomputeTotals() {
	var total int64
	for i := range o.Lines {
		o.Lines[i].Subtotal = o.Lines[i].UnitPrice * int64(o.Lines[i].Quantity)
		total += o.Lines[i].Subtotal
	}
	o.TotalAmount = total
}
