// README: Delivery drone aggregate and status definitions.
package drone

import (
	"time"

	"skyeats/internal/types"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusBusy        Status = "busy"
	StatusMaintenance Status = "maintenance"
	StatusOffline     Status = "offline"
	StatusRetired     Status = "retired"
)

// Specs are the capability limits declared at registration.
type Specs struct {
	MaxSpeedKmh   float64 `json:"max_speed_kmh"`
	RangeKm       float64 `json:"range_km"`
	FlightTimeMin int     `json:"flight_time_min"`
	PayloadKg     float64 `json:"payload_kg"`
}

type Drone struct {
	ID             types.ID
	ShopID         types.ID
	Model          string
	SerialNumber   string
	Status         Status
	BatteryPercent int
	Specs          Specs
	TotalFlights   int
	LastPosition   *types.Point
	CreatedAt      time.Time
}

// operatorSettable lists statuses an operator may set directly. The
// available<->busy pair is owned by the dispatch engine's assignment
// transaction and is rejected here.
var operatorSettable = map[Status]bool{
	StatusAvailable:   true,
	StatusMaintenance: true,
	StatusOffline:     true,
	StatusRetired:     true,
}
