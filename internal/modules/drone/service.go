// README: Drone registry service: registration, eligibility, status, and position reports.
package drone

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"skyeats/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("drone not found")
	ErrBusy       = errors.New("drone is busy")
)

type Service struct {
	store *Store
	// minBattery is the eligibility floor in percent for new assignments.
	minBattery int
}

func NewService(store *Store, minBattery int) *Service {
	return &Service{store: store, minBattery: minBattery}
}

type RegisterCommand struct {
	ShopID       types.ID
	Model        string
	SerialNumber string
	Specs        Specs
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Drone, error) {
	if cmd.ShopID == "" || cmd.Model == "" || cmd.SerialNumber == "" {
		return nil, fmt.Errorf("%w: shop, model, and serial number are required", ErrBadRequest)
	}
	if cmd.Specs.RangeKm <= 0 || cmd.Specs.MaxSpeedKmh <= 0 {
		return nil, fmt.Errorf("%w: positive range and max speed are required", ErrBadRequest)
	}
	d := &Drone{
		ID:             newID(),
		ShopID:         cmd.ShopID,
		Model:          cmd.Model,
		SerialNumber:   cmd.SerialNumber,
		Status:         StatusAvailable,
		BatteryPercent: 100,
		Specs:          cmd.Specs,
		CreatedAt:      time.Now(),
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Drone, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListEligible(ctx context.Context, shopID types.ID) ([]*Drone, error) {
	return s.store.ListEligible(ctx, shopID, s.minBattery)
}

// SetStatus handles operator-driven status changes (maintenance, offline,
// retirement, and bringing a drone back to available from those states).
// Assignment transitions are the dispatch engine's alone: busy can neither be
// set nor left through this path.
func (s *Service) SetStatus(ctx context.Context, id types.ID, to Status) error {
	if !operatorSettable[to] {
		return fmt.Errorf("%w: status %q cannot be set directly", ErrBadRequest, to)
	}
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.Status == StatusBusy {
		return ErrBusy
	}
	ok, err := s.store.SetStatus(ctx, id, to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// UpdatePosition records a battery/position report from the drone itself.
// Battery may be -1 when the report carries no battery reading.
func (s *Service) UpdatePosition(ctx context.Context, id types.ID, pos types.Point, battery int) error {
	if battery > 100 || battery < -1 {
		return fmt.Errorf("%w: battery must be within [0,100]", ErrBadRequest)
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.store.UpdatePosition(ctx, id, pos, battery)
}

// Release implements the order ledger's DroneReleaser: busy -> available,
// optionally writing through the last reported battery.
func (s *Service) Release(ctx context.Context, id types.ID, battery int) error {
	// A no-op release (already available, or never busy) is not an error;
	// duplicate completion paths land here.
	_, err := s.store.Release(ctx, id, battery)
	return err
}

func newID() types.ID {
	// Same generator as the order ledger; kept local to avoid a dependency
	// between registries.
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
