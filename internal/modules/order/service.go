// README: Order service implements creation, lifecycle transitions, and persistence.
package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"skyeats/internal/modules/catalog"
	"skyeats/internal/types"
)

var (
	ErrBadRequest        = errors.New("bad request")
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("order status conflict")
)

// Directory resolves catalog documents at order-creation time so line
// snapshots are captured from authoritative records, not client input.
type Directory interface {
	GetItem(ctx context.Context, id types.ID) (*catalog.Item, error)
	GetShop(ctx context.Context, id types.ID) (*catalog.Shop, error)
}

// DroneReleaser returns an assigned drone to the available pool. A negative
// battery value leaves the drone's battery untouched.
type DroneReleaser interface {
	Release(ctx context.Context, id types.ID, battery int) error
}

// RoomCloser tears down the order's tracking channel once the order reaches a
// terminal status.
type RoomCloser interface {
	CloseRoom(orderID types.ID)
}

type Service struct {
	store   *Store
	catalog Directory
	drones  DroneReleaser
	tracker RoomCloser
}

func NewService(store *Store, dir Directory, drones DroneReleaser, tracker RoomCloser) *Service {
	return &Service{store: store, catalog: dir, drones: drones, tracker: tracker}
}

type LineInput struct {
	ItemID   types.ID
	Quantity int
	Note     string
}

type CreateCommand struct {
	CustomerID types.ID
	Lines      []LineInput
	Target     DeliveryTarget
	Contact    Contact
}

type Actor struct {
	Type string // "customer", "operator", "gateway", "drone", "system"
	ID   types.ID
}

var phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)

// estimatedDeliveryLead is the rough promise shown to the customer at
// checkout; the live ETA comes from the tracking channel once dispatched.
const estimatedDeliveryLead = 35 * time.Minute

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.CustomerID == "" {
		return nil, fmt.Errorf("%w: missing customer", ErrBadRequest)
	}
	if len(cmd.Lines) == 0 {
		return nil, fmt.Errorf("%w: order has no lines", ErrBadRequest)
	}
	if cmd.Target.Address == "" || cmd.Target.Coordinates.Zero() {
		return nil, fmt.Errorf("%w: delivery address with coordinates is required", ErrBadRequest)
	}
	if cmd.Contact.Name == "" || !phonePattern.MatchString(cmd.Contact.Phone) {
		return nil, fmt.Errorf("%w: contact name and a 10-11 digit phone are required", ErrBadRequest)
	}

	lines := make([]Line, 0, len(cmd.Lines))
	for _, in := range cmd.Lines {
		if in.Quantity < 1 {
			return nil, fmt.Errorf("%w: line quantity must be at least 1", ErrBadRequest)
		}
		item, err := s.catalog.GetItem(ctx, in.ItemID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown item %s", ErrBadRequest, in.ItemID)
			}
			return nil, err
		}
		shop, err := s.catalog.GetShop(ctx, item.ShopID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: shop missing for item %s", ErrBadRequest, in.ItemID)
			}
			return nil, err
		}
		lines = append(lines, Line{
			ItemID:       item.ID,
			Quantity:     in.Quantity,
			UnitPrice:    item.Price,
			Note:         in.Note,
			ItemName:     item.Name,
			ItemImage:    item.Image,
			ItemCategory: item.Category,
			ItemFoodType: item.FoodType,
			ShopID:       shop.ID,
			ShopName:     shop.Name,
			ShopCity:     shop.City,
			ShopState:    shop.State,
			ShopAddress:  shop.Address,
			ShopOwnerID:  shop.OwnerID,
		})
	}

	now := time.Now()
	eta := now.Add(estimatedDeliveryLead)
	o := &Order{
		ID:                  NewID(),
		CustomerID:          cmd.CustomerID,
		Lines:               lines,
		Target:              cmd.Target,
		Contact:             cmd.Contact,
		Status:              StatusPending,
		DroneBatteryPercent: 100,
		EstimatedDeliveryAt: &eta,
		CreatedAt:           now,
	}
	o.RecomputeTotals()

	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, o.ID, StatusNone, StatusPending, Actor{Type: "customer", ID: cmd.CustomerID})
	return o, nil
}

// GetByID fetches an order without actor scoping, for trusted internal
// callers such as payment reconciliation.
func (s *Service) GetByID(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// Get scopes the read to the caller: customers see their own orders,
// operators see orders containing their shop's lines.
func (s *Service) Get(ctx context.Context, id types.ID, caller Actor) (*Order, error) {
	switch caller.Type {
	case "customer":
		return s.store.GetForCustomer(ctx, id, caller.ID)
	case "operator":
		return s.store.GetForShopOwner(ctx, id, caller.ID)
	default:
		return s.store.Get(ctx, id)
	}
}

func (s *Service) ListByCustomer(ctx context.Context, customerID types.ID, status Status, limit, offset int) ([]*Order, error) {
	return s.store.ListByCustomer(ctx, customerID, status, clampLimit(limit), offset)
}

func (s *Service) ListByShopOwner(ctx context.Context, ownerID types.ID, status Status, limit, offset int) ([]*Order, error) {
	return s.store.ListByShopOwner(ctx, ownerID, status, clampLimit(limit), offset)
}

// UpdateStatusByOperator moves an order along the lifecycle on behalf of the
// owning shop's operator. Confirmation belongs to the payment reconciler and
// delivering to the dispatch engine, so both are rejected here.
func (s *Service) UpdateStatusByOperator(ctx context.Context, id, ownerID types.ID, to Status) (*Order, error) {
	if to != StatusPreparing && to != StatusCompleted && to != StatusCancelled {
		return nil, fmt.Errorf("%w: operators may set preparing, completed, or cancelled", ErrInvalidTransition)
	}
	o, err := s.store.GetForShopOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, ErrInvalidTransition
	}

	var reason *string
	if to == StatusCancelled {
		r := "cancelled by shop"
		reason = &r
	}
	ok, err := s.store.UpdateStatus(ctx, id, o.Status, to, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.appendEvent(ctx, id, o.Status, to, Actor{Type: "operator", ID: ownerID})

	if to == StatusCompleted || to == StatusCancelled {
		s.closeOut(ctx, o, to)
	}
	return s.store.Get(ctx, id)
}

// CancelByCustomer cancels an order that has not started preparation.
func (s *Service) CancelByCustomer(ctx context.Context, id, customerID types.ID, reason string) (*Order, error) {
	o, err := s.store.GetForCustomer(ctx, id, customerID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending && o.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}
	if reason == "" {
		reason = "cancelled by customer"
	}
	ok, err := s.store.UpdateStatus(ctx, id, o.Status, StatusCancelled, &reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.appendEvent(ctx, id, o.Status, StatusCancelled, Actor{Type: "customer", ID: customerID})
	s.closeOut(ctx, o, StatusCancelled)
	return s.store.Get(ctx, id)
}

// ConfirmPayment applies a successful payment to the order. Reconciliation is
// idempotent: an order already past pending is left untouched.
func (s *Service) ConfirmPayment(ctx context.Context, id, paymentID types.ID) error {
	if err := s.store.SetPaymentRef(ctx, id, paymentID); err != nil {
		return err
	}
	ok, err := s.store.UpdateStatus(ctx, id, StatusPending, StatusConfirmed, nil)
	if err != nil {
		return err
	}
	if !ok {
		// Already confirmed by an earlier callback delivery, or cancelled
		// while the payment was in flight. Neither should fail reconciliation.
		log.Printf("order %s: payment confirmed but order not pending; leaving status as-is", id)
		return nil
	}
	s.appendEvent(ctx, id, StatusPending, StatusConfirmed, Actor{Type: "gateway"})
	return nil
}

func (s *Service) ActiveByDrone(ctx context.Context, droneID types.ID) (*Order, error) {
	return s.store.ActiveByDrone(ctx, droneID)
}

// closeOut releases the assigned drone and tears down the tracking channel
// after a terminal transition. Completion hands the drone back at the last
// reported battery level rather than resetting it to full.
func (s *Service) closeOut(ctx context.Context, o *Order, to Status) {
	if o.DroneID != nil && s.drones != nil {
		battery := -1
		if to == StatusCompleted {
			battery = o.DroneBatteryPercent
		}
		if err := s.drones.Release(ctx, *o.DroneID, battery); err != nil {
			log.Printf("order %s: release drone %s: %v", o.ID, *o.DroneID, err)
		}
	}
	if s.tracker != nil {
		s.tracker.CloseRoom(o.ID)
	}
}

func (s *Service) appendEvent(ctx context.Context, id types.ID, from, to Status, actor Actor) {
	var actorID *types.ID
	if actor.ID != "" {
		actorID = &actor.ID
	}
	err := s.store.AppendEvent(ctx, &Event{
		OrderID:    id,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actor.Type,
		ActorID:    actorID,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		log.Printf("order %s: append status event %s->%s: %v", id, from, to, err)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 10
	}
	return limit
}

// NewID returns a random 32-char hex identifier.
func NewID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
