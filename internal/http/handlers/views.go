// README: Response shapes shared by the handlers.
package handlers

import (
	"time"

	"skyeats/internal/modules/drone"
	"skyeats/internal/modules/order"
	"skyeats/internal/modules/payment"
	"skyeats/internal/types"
)

// orderResponse is the outward order document. The confirmation code never
// appears here: the customer receives it out of band and the operator only in
// the assign response.
type orderResponse struct {
	ID                  types.ID             `json:"id"`
	CustomerID          types.ID             `json:"customer_id"`
	Status              order.Status         `json:"status"`
	Lines               []order.Line         `json:"lines"`
	TotalAmount         int64                `json:"total_amount"`
	Target              order.DeliveryTarget `json:"target"`
	Contact             order.Contact        `json:"contact"`
	PaymentID           *types.ID            `json:"payment_id,omitempty"`
	DroneID             *types.ID            `json:"drone_id,omitempty"`
	DroneBatteryPercent int                  `json:"drone_battery_percent"`
	DeliveryDistanceKm  float64              `json:"delivery_distance_km"`
	EstimatedDeliveryAt *time.Time           `json:"estimated_delivery_at,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	DeliveredAt         *time.Time           `json:"delivered_at,omitempty"`
	CancelledAt         *time.Time           `json:"cancelled_at,omitempty"`
	CancelReason        *string              `json:"cancel_reason,omitempty"`
}

func newOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:                  o.ID,
		CustomerID:          o.CustomerID,
		Status:              o.Status,
		Lines:               o.Lines,
		TotalAmount:         o.TotalAmount,
		Target:              o.Target,
		Contact:             o.Contact,
		PaymentID:           o.PaymentID,
		DroneID:             o.DroneID,
		DroneBatteryPercent: o.DroneBatteryPercent,
		DeliveryDistanceKm:  o.DeliveryDistanceKm,
		EstimatedDeliveryAt: o.EstimatedDeliveryAt,
		CreatedAt:           o.CreatedAt,
		DeliveredAt:         o.DeliveredAt,
		CancelledAt:         o.CancelledAt,
		CancelReason:        o.CancelReason,
	}
}

func newOrderList(orders []*order.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	return out
}

type droneResponse struct {
	ID             types.ID     `json:"id"`
	ShopID         types.ID     `json:"shop_id"`
	Model          string       `json:"model"`
	SerialNumber   string       `json:"serial_number"`
	Status         drone.Status `json:"status"`
	BatteryPercent int          `json:"battery_percent"`
	Specs          drone.Specs  `json:"specs"`
	LastPosition   *types.Point `json:"last_position,omitempty"`
	TotalFlights   int          `json:"total_flights"`
	CreatedAt      time.Time    `json:"created_at"`
}

func newDroneResponse(d *drone.Drone) droneResponse {
	return droneResponse{
		ID:             d.ID,
		ShopID:         d.ShopID,
		Model:          d.Model,
		SerialNumber:   d.SerialNumber,
		Status:         d.Status,
		BatteryPercent: d.BatteryPercent,
		Specs:          d.Specs,
		LastPosition:   d.LastPosition,
		TotalFlights:   d.TotalFlights,
		CreatedAt:      d.CreatedAt,
	}
}

func newDroneList(drones []*drone.Drone) []droneResponse {
	out := make([]droneResponse, 0, len(drones))
	for _, d := range drones {
		out = append(out, newDroneResponse(d))
	}
	return out
}

type paymentResponse struct {
	ID            types.ID       `json:"id"`
	OrderID       types.ID       `json:"order_id"`
	Amount        int64          `json:"amount"`
	Method        string         `json:"method"`
	Status        payment.Status `json:"status"`
	TransactionID string         `json:"transaction_id,omitempty"`
	BankCode      string         `json:"bank_code,omitempty"`
	PayDate       string         `json:"pay_date,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newPaymentResponse(p *payment.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		BankCode:      p.BankCode,
		PayDate:       p.PayDate,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
	}
}
