package order

import (
	"context"
	"errors"
	"testing"

	"skyeats/internal/modules/catalog"
	"skyeats/internal/types"
)

// stubDirectory serves a one-item catalog; every validation failure below
// happens before the store is touched, so a nil store is safe.
type stubDirectory struct{}

func (stubDirectory) GetItem(_ context.Context, id types.ID) (*catalog.Item, error) {
	if id != "item-1" {
		return nil, catalog.ErrNotFound
	}
	return &catalog.Item{ID: "item-1", ShopID: "shop-1", Name: "banh mi", Price: 25000, Stock: 5}, nil
}

func (stubDirectory) GetShop(_ context.Context, id types.ID) (*catalog.Shop, error) {
	if id != "shop-1" {
		return nil, catalog.ErrNotFound
	}
	return &catalog.Shop{ID: "shop-1", OwnerID: "owner-1", Name: "Banh Mi Corner"}, nil
}

func validCommand() CreateCommand {
	return CreateCommand{
		CustomerID: "cust-1",
		Lines:      []LineInput{{ItemID: "item-1", Quantity: 2}},
		Target: DeliveryTarget{
			Address:     "12 Nguyen Hue",
			Coordinates: types.Point{Lat: 10.7769, Lng: 106.7009},
		},
		Contact: Contact{Name: "An", Phone: "0901234567"},
	}
}

type recordingReleaser struct {
	released  []types.ID
	batteries []int
}

func (r *recordingReleaser) Release(_ context.Context, id types.ID, battery int) error {
	r.released = append(r.released, id)
	r.batteries = append(r.batteries, battery)
	return nil
}

type recordingCloser struct {
	closed []types.ID
}

func (r *recordingCloser) CloseRoom(orderID types.ID) {
	r.closed = append(r.closed, orderID)
}

func TestCloseOut(t *testing.T) {
	droneID := types.ID("drone-1")
	ctx := context.Background()

	t.Run("completed hands drone back at last reported battery", func(t *testing.T) {
		releaser := &recordingReleaser{}
		closer := &recordingCloser{}
		svc := NewService(nil, stubDirectory{}, releaser, closer)

		o := &Order{ID: "order-1", DroneID: &droneID, DroneBatteryPercent: 62}
		svc.closeOut(ctx, o, StatusCompleted)

		if len(releaser.released) != 1 || releaser.released[0] != droneID {
			t.Fatalf("released = %v, want [drone-1]", releaser.released)
		}
		if releaser.batteries[0] != 62 {
			t.Errorf("release battery = %d, want last reported 62", releaser.batteries[0])
		}
		if len(closer.closed) != 1 || closer.closed[0] != "order-1" {
			t.Errorf("closed rooms = %v, want [order-1]", closer.closed)
		}
	})

	t.Run("cancelled releases without touching battery", func(t *testing.T) {
		releaser := &recordingReleaser{}
		closer := &recordingCloser{}
		svc := NewService(nil, stubDirectory{}, releaser, closer)

		o := &Order{ID: "order-2", DroneID: &droneID, DroneBatteryPercent: 62}
		svc.closeOut(ctx, o, StatusCancelled)

		if len(releaser.released) != 1 {
			t.Fatalf("released = %v, want one release", releaser.released)
		}
		if releaser.batteries[0] != -1 {
			t.Errorf("release battery = %d, want -1 to keep the current value", releaser.batteries[0])
		}
	})

	t.Run("no drone still closes the room", func(t *testing.T) {
		releaser := &recordingReleaser{}
		closer := &recordingCloser{}
		svc := NewService(nil, stubDirectory{}, releaser, closer)

		o := &Order{ID: "order-3", DroneBatteryPercent: 100}
		svc.closeOut(ctx, o, StatusCancelled)

		if len(releaser.released) != 0 {
			t.Errorf("released = %v, want no release without an assigned drone", releaser.released)
		}
		if len(closer.closed) != 1 || closer.closed[0] != "order-3" {
			t.Errorf("closed rooms = %v, want [order-3]", closer.closed)
		}
	})
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(nil, stubDirectory{}, nil, nil)
	ctx := context.Background()

	mutations := []struct {
		name   string
		mutate func(*CreateCommand)
	}{
		{"missing customer", func(c *CreateCommand) { c.CustomerID = "" }},
		{"no lines", func(c *CreateCommand) { c.Lines = nil }},
		{"zero quantity", func(c *CreateCommand) { c.Lines[0].Quantity = 0 }},
		{"unknown item", func(c *CreateCommand) { c.Lines[0].ItemID = "item-404" }},
		{"missing address", func(c *CreateCommand) { c.Target.Address = "" }},
		{"zero coordinates", func(c *CreateCommand) { c.Target.Coordinates = types.Point{} }},
		{"missing contact name", func(c *CreateCommand) { c.Contact.Name = "" }},
		{"short phone", func(c *CreateCommand) { c.Contact.Phone = "12345" }},
		{"non-numeric phone", func(c *CreateCommand) { c.Contact.Phone = "09o1234567" }},
	}
	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			cmd := validCommand()
			tc.mutate(&cmd)
			if _, err := svc.Create(ctx, cmd); !errors.Is(err, ErrBadRequest) {
				t.Errorf("err = %v, want ErrBadRequest", err)
			}
		})
	}
}
