// README: Dispatch engine: eligibility, exclusive assignment, battery write-through, completion.
package dispatch

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"skyeats/internal/geo"
	"skyeats/internal/modules/catalog"
	"skyeats/internal/modules/drone"
	"skyeats/internal/modules/order"
	"skyeats/internal/modules/tracking"
	"skyeats/internal/types"
)

var (
	ErrBadRequest            = errors.New("bad request")
	ErrOrderNotPreparing     = errors.New("order is not in preparing status")
	ErrDroneUnavailable      = errors.New("drone is not available")
	ErrOrderNotDelivering    = errors.New("order is not in delivering status")
	ErrWrongConfirmationCode = errors.New("wrong confirmation code")
)

// Tracker is the broadcaster surface the engine drives: an assignment event
// on dispatch, room teardown on completion.
type Tracker interface {
	PublishAssigned(orderID types.ID, ev tracking.AssignedEvent)
	CloseRoom(orderID types.ID)
}

// Assigner performs the atomic order+drone assignment write. Satisfied by
// *Store.
type Assigner interface {
	Assign(ctx context.Context, orderID, droneID types.ID, code string, distanceKm float64, battery int) (orderOK, droneOK bool, err error)
}

// OrderLedger is the order-side surface the engine reads and transitions.
// Satisfied by *order.Store.
type OrderLedger interface {
	Get(ctx context.Context, id types.ID) (*order.Order, error)
	GetForCustomer(ctx context.Context, id, customerID types.ID) (*order.Order, error)
	GetForShopOwner(ctx context.Context, id, ownerID types.ID) (*order.Order, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to order.Status, cancelReason *string) (bool, error)
	UpdateBattery(ctx context.Context, id types.ID, percent int) (bool, error)
	AppendEvent(ctx context.Context, ev *order.Event) error
}

// DroneRegistry is the drone-side surface. Satisfied by *drone.Store.
type DroneRegistry interface {
	Get(ctx context.Context, id types.ID) (*drone.Drone, error)
	Release(ctx context.Context, id types.ID, battery int) (bool, error)
	UpdateBattery(ctx context.Context, id types.ID, percent int) error
}

// ShopDirectory resolves shop coordinates for the delivery distance.
// Satisfied by *catalog.Store.
type ShopDirectory interface {
	GetShop(ctx context.Context, id types.ID) (*catalog.Shop, error)
}

type Service struct {
	store   Assigner
	orders  OrderLedger
	drones  DroneRegistry
	catalog ShopDirectory
	tracker Tracker
}

func NewService(store Assigner, orders OrderLedger, drones DroneRegistry, cat ShopDirectory, tracker Tracker) *Service {
	return &Service{store: store, orders: orders, drones: drones, catalog: cat, tracker: tracker}
}

type AssignResult struct {
	ConfirmCode        string
	DeliveryDistanceKm float64
}

// Assign binds an available drone to a preparing order. The generated
// confirmation code is the one-time secret the customer will present on
// delivery; collisions across orders are acceptable since verification is
// scoped to a single order.
func (s *Service) Assign(ctx context.Context, orderID, droneID, operatorID types.ID) (*AssignResult, error) {
	o, err := s.orders.GetForShopOwner(ctx, orderID, operatorID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusPreparing {
		return nil, ErrOrderNotPreparing
	}

	d, err := s.drones.Get(ctx, droneID)
	if err != nil {
		return nil, err
	}
	if d.Status != drone.StatusAvailable {
		return nil, ErrDroneUnavailable
	}

	distanceKm := 0.0
	var shopCoords types.Point
	if shop, err := s.catalog.GetShop(ctx, d.ShopID); err == nil {
		shopCoords = shop.Coordinates
		if !shopCoords.Zero() && !o.Target.Coordinates.Zero() {
			distanceKm = geo.DistanceKm(shopCoords, o.Target.Coordinates)
		}
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}

	code, err := NewConfirmCode()
	if err != nil {
		return nil, err
	}

	orderOK, droneOK, err := s.store.Assign(ctx, orderID, droneID, code, distanceKm, d.BatteryPercent)
	if err != nil {
		return nil, err
	}
	if !orderOK {
		// A concurrent assign (or cancel) won; the order left preparing.
		return nil, ErrOrderNotPreparing
	}
	if !droneOK {
		return nil, ErrDroneUnavailable
	}

	s.appendEvent(ctx, orderID, order.StatusPreparing, order.StatusDelivering, "operator", operatorID)

	if s.tracker != nil {
		s.tracker.PublishAssigned(orderID, tracking.AssignedEvent{
			DroneID:            droneID,
			ShopCoordinates:    shopCoords,
			TargetAddress:      o.Target.Address,
			TargetCoordinates:  o.Target.Coordinates,
			DeliveryDistanceKm: distanceKm,
		})
	}

	return &AssignResult{ConfirmCode: code, DeliveryDistanceKm: distanceKm}, nil
}

// VerifyCompletion checks the customer's code and completes the delivery.
// The conditional update means the transition happens exactly once even under
// duplicate submissions; the loser observes OrderNotDelivering.
func (s *Service) VerifyCompletion(ctx context.Context, orderID, customerID types.ID, code string) (*order.Order, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: confirmation code is required", ErrBadRequest)
	}
	o, err := s.orders.GetForCustomer(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusDelivering {
		return nil, ErrOrderNotDelivering
	}
	if o.ConfirmCode != code {
		return nil, ErrWrongConfirmationCode
	}

	ok, err := s.orders.UpdateStatus(ctx, orderID, order.StatusDelivering, order.StatusCompleted, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotDelivering
	}
	s.appendEvent(ctx, orderID, order.StatusDelivering, order.StatusCompleted, "customer", customerID)

	if o.DroneID != nil {
		if _, err := s.drones.Release(ctx, *o.DroneID, o.DroneBatteryPercent); err != nil {
			log.Printf("dispatch: release drone %s after order %s: %v", *o.DroneID, orderID, err)
		}
	}
	if s.tracker != nil {
		s.tracker.CloseRoom(orderID)
	}

	return s.orders.Get(ctx, orderID)
}

// UpdateBattery writes a battery report through to both the order's tracked
// value and the drone's live record. Only valid mid-delivery.
func (s *Service) UpdateBattery(ctx context.Context, orderID, operatorID types.ID, percent int) (*order.Order, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("%w: battery must be within [0,100]", ErrBadRequest)
	}
	o, err := s.orders.GetForShopOwner(ctx, orderID, operatorID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusDelivering || o.DroneID == nil {
		return nil, ErrOrderNotDelivering
	}

	ok, err := s.orders.UpdateBattery(ctx, orderID, percent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotDelivering
	}
	if err := s.drones.UpdateBattery(ctx, *o.DroneID, percent); err != nil {
		return nil, err
	}
	return s.orders.Get(ctx, orderID)
}

func (s *Service) appendEvent(ctx context.Context, id types.ID, from, to order.Status, actorType string, actorID types.ID) {
	var aid *types.ID
	if actorID != "" {
		aid = &actorID
	}
	err := s.orders.AppendEvent(ctx, &order.Event{
		OrderID:    id,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    aid,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		log.Printf("dispatch: append status event for order %s: %v", id, err)
	}
}

// NewConfirmCode draws a uniform 6-digit code over 000000-999999.
func NewConfirmCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
