package dispatch

import (
	"context"
	"errors"
	"testing"

	"skyeats/internal/modules/catalog"
	"skyeats/internal/modules/drone"
	"skyeats/internal/modules/order"
	"skyeats/internal/modules/tracking"
	"skyeats/internal/types"
)

type fakeOrders struct {
	byID   map[types.ID]*order.Order
	owners map[types.ID]types.ID // order id -> shop owner allowed to see it
	events []*order.Event
}

func (f *fakeOrders) Get(_ context.Context, id types.ID) (*order.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) GetForCustomer(_ context.Context, id, customerID types.ID) (*order.Order, error) {
	o, ok := f.byID[id]
	if !ok || o.CustomerID != customerID {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) GetForShopOwner(_ context.Context, id, ownerID types.ID) (*order.Order, error) {
	o, ok := f.byID[id]
	if !ok || f.owners[id] != ownerID {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id types.ID, from, to order.Status, reason *string) (bool, error) {
	o, ok := f.byID[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if to != order.StatusDelivering {
		o.ConfirmCode = ""
	}
	if to == order.StatusCancelled {
		o.DroneID = nil
		o.CancelReason = reason
	}
	return true, nil
}

func (f *fakeOrders) UpdateBattery(_ context.Context, id types.ID, percent int) (bool, error) {
	o, ok := f.byID[id]
	if !ok || o.Status != order.StatusDelivering {
		return false, nil
	}
	o.DroneBatteryPercent = percent
	return true, nil
}

func (f *fakeOrders) AppendEvent(_ context.Context, ev *order.Event) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeDrones struct {
	byID     map[types.ID]*drone.Drone
	releases int
}

func (f *fakeDrones) Get(_ context.Context, id types.ID) (*drone.Drone, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, drone.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDrones) Release(_ context.Context, id types.ID, battery int) (bool, error) {
	d, ok := f.byID[id]
	if !ok || d.Status != drone.StatusBusy {
		return false, nil
	}
	d.Status = drone.StatusAvailable
	if battery >= 0 {
		d.BatteryPercent = battery
	}
	f.releases++
	return true, nil
}

func (f *fakeDrones) UpdateBattery(_ context.Context, id types.ID, percent int) error {
	if d, ok := f.byID[id]; ok {
		d.BatteryPercent = percent
	}
	return nil
}

type fakeShops struct {
	byID map[types.ID]*catalog.Shop
}

func (f *fakeShops) GetShop(_ context.Context, id types.ID) (*catalog.Shop, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// fakeAssigner mirrors the store's transactional semantics: both conditions
// are evaluated, and mutations land only when both hold. The before hook lets
// a test interleave a competing writer between the service's status read and
// the assignment write.
type fakeAssigner struct {
	orders *fakeOrders
	drones *fakeDrones
	before func()
}

func (f *fakeAssigner) Assign(_ context.Context, orderID, droneID types.ID, code string, distanceKm float64, battery int) (bool, bool, error) {
	if f.before != nil {
		f.before()
	}
	o := f.orders.byID[orderID]
	d := f.drones.byID[droneID]
	orderOK := o != nil && o.Status == order.StatusPreparing
	droneOK := d != nil && d.Status == drone.StatusAvailable
	if orderOK && droneOK {
		o.Status = order.StatusDelivering
		o.DroneID = &droneID
		o.ConfirmCode = code
		o.DeliveryDistanceKm = distanceKm
		o.DroneBatteryPercent = battery
		d.Status = drone.StatusBusy
	}
	return orderOK, droneOK, nil
}

type fakeTracker struct {
	assigned []tracking.AssignedEvent
	closed   []types.ID
}

func (f *fakeTracker) PublishAssigned(_ types.ID, ev tracking.AssignedEvent) {
	f.assigned = append(f.assigned, ev)
}

func (f *fakeTracker) CloseRoom(orderID types.ID) {
	f.closed = append(f.closed, orderID)
}

type fixture struct {
	svc     *Service
	orders  *fakeOrders
	drones  *fakeDrones
	shops   *fakeShops
	store   *fakeAssigner
	tracker *fakeTracker
}

func newFixture() *fixture {
	orders := &fakeOrders{
		byID: map[types.ID]*order.Order{
			"order-1": {
				ID:         "order-1",
				CustomerID: "cust-1",
				Status:     order.StatusPreparing,
				Target: order.DeliveryTarget{
					Address:     "12 Nguyen Hue",
					Coordinates: types.Point{Lat: 10.7769, Lng: 106.7009},
				},
			},
		},
		owners: map[types.ID]types.ID{"order-1": "op-1"},
	}
	drones := &fakeDrones{byID: map[types.ID]*drone.Drone{
		"drone-1": {ID: "drone-1", ShopID: "shop-1", Status: drone.StatusAvailable, BatteryPercent: 80},
	}}
	shops := &fakeShops{byID: map[types.ID]*catalog.Shop{
		"shop-1": {ID: "shop-1", OwnerID: "op-1", Coordinates: types.Point{Lat: 10.8231, Lng: 106.6297}},
	}}
	store := &fakeAssigner{orders: orders, drones: drones}
	tracker := &fakeTracker{}
	return &fixture{
		svc:     NewService(store, orders, drones, shops, tracker),
		orders:  orders,
		drones:  drones,
		shops:   shops,
		store:   store,
		tracker: tracker,
	}
}

func TestAssign(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	res, err := fx.svc.Assign(ctx, "order-1", "drone-1", "op-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(res.ConfirmCode) != 6 {
		t.Errorf("confirm code %q is not 6 digits", res.ConfirmCode)
	}
	if res.DeliveryDistanceKm <= 0 {
		t.Errorf("distance = %v, want positive", res.DeliveryDistanceKm)
	}

	o := fx.orders.byID["order-1"]
	if o.Status != order.StatusDelivering {
		t.Errorf("order status = %s, want delivering", o.Status)
	}
	if o.DroneID == nil || *o.DroneID != "drone-1" {
		t.Errorf("order drone = %v, want drone-1", o.DroneID)
	}
	if o.ConfirmCode != res.ConfirmCode {
		t.Errorf("stored code %q != returned code %q", o.ConfirmCode, res.ConfirmCode)
	}
	if o.DroneBatteryPercent != 80 {
		t.Errorf("order battery = %d, want drone's 80", o.DroneBatteryPercent)
	}
	if fx.drones.byID["drone-1"].Status != drone.StatusBusy {
		t.Errorf("drone status = %s, want busy", fx.drones.byID["drone-1"].Status)
	}
	if len(fx.tracker.assigned) != 1 {
		t.Fatalf("published %d assignment events, want 1", len(fx.tracker.assigned))
	}
	ev := fx.tracker.assigned[0]
	if ev.DroneID != "drone-1" || ev.TargetAddress != "12 Nguyen Hue" {
		t.Errorf("assignment event = %+v", ev)
	}
	if len(fx.orders.events) != 1 || fx.orders.events[0].ToStatus != order.StatusDelivering {
		t.Errorf("status events = %+v, want one preparing->delivering", fx.orders.events)
	}
}

func TestAssignRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(fx *fixture)
		wantErr error
	}{
		{"order not visible to operator", func(fx *fixture) {
			fx.orders.owners["order-1"] = "op-2"
		}, order.ErrNotFound},
		{"order not preparing", func(fx *fixture) {
			fx.orders.byID["order-1"].Status = order.StatusConfirmed
		}, ErrOrderNotPreparing},
		{"drone busy", func(fx *fixture) {
			fx.drones.byID["drone-1"].Status = drone.StatusBusy
		}, ErrDroneUnavailable},
		{"unknown drone", func(fx *fixture) {
			delete(fx.drones.byID, "drone-1")
		}, drone.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture()
			tc.mutate(fx)
			if _, err := fx.svc.Assign(context.Background(), "order-1", "drone-1", "op-1"); !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
			if len(fx.tracker.assigned) != 0 {
				t.Error("assignment event published for rejected assign")
			}
		})
	}
}

func TestAssignLosesRace(t *testing.T) {
	fx := newFixture()
	// A competing writer cancels the order after the status read but before
	// the assignment write. The conditional write must lose and the drone
	// must stay available.
	fx.store.before = func() {
		fx.orders.byID["order-1"].Status = order.StatusCancelled
	}

	_, err := fx.svc.Assign(context.Background(), "order-1", "drone-1", "op-1")
	if !errors.Is(err, ErrOrderNotPreparing) {
		t.Fatalf("err = %v, want ErrOrderNotPreparing", err)
	}
	if got := fx.drones.byID["drone-1"].Status; got != drone.StatusAvailable {
		t.Errorf("drone status = %s, want available after lost race", got)
	}
	if len(fx.tracker.assigned) != 0 {
		t.Error("assignment event published for lost race")
	}
}

func TestVerifyCompletion(t *testing.T) {
	assigned := func(t *testing.T) (*fixture, string) {
		t.Helper()
		fx := newFixture()
		res, err := fx.svc.Assign(context.Background(), "order-1", "drone-1", "op-1")
		if err != nil {
			t.Fatalf("assign: %v", err)
		}
		return fx, res.ConfirmCode
	}

	t.Run("wrong code mutates nothing", func(t *testing.T) {
		fx, code := assigned(t)
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}
		_, err := fx.svc.VerifyCompletion(context.Background(), "order-1", "cust-1", wrong)
		if !errors.Is(err, ErrWrongConfirmationCode) {
			t.Fatalf("err = %v, want ErrWrongConfirmationCode", err)
		}
		if fx.orders.byID["order-1"].Status != order.StatusDelivering {
			t.Error("order left delivering on wrong code")
		}
		if fx.drones.byID["drone-1"].Status != drone.StatusBusy {
			t.Error("drone released on wrong code")
		}
		if len(fx.tracker.closed) != 0 {
			t.Error("room closed on wrong code")
		}
	})

	t.Run("empty code rejected", func(t *testing.T) {
		fx, _ := assigned(t)
		if _, err := fx.svc.VerifyCompletion(context.Background(), "order-1", "cust-1", ""); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("err = %v, want ErrBadRequest", err)
		}
	})

	t.Run("foreign customer rejected", func(t *testing.T) {
		fx, code := assigned(t)
		if _, err := fx.svc.VerifyCompletion(context.Background(), "order-1", "cust-2", code); !errors.Is(err, order.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("correct code completes exactly once", func(t *testing.T) {
		fx, code := assigned(t)
		ctx := context.Background()
		fx.orders.byID["order-1"].DroneBatteryPercent = 62 // mid-flight report

		o, err := fx.svc.VerifyCompletion(ctx, "order-1", "cust-1", code)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if o.Status != order.StatusCompleted {
			t.Errorf("order status = %s, want completed", o.Status)
		}
		d := fx.drones.byID["drone-1"]
		if d.Status != drone.StatusAvailable {
			t.Errorf("drone status = %s, want available", d.Status)
		}
		if d.BatteryPercent != 62 {
			t.Errorf("drone battery = %d, want last reported 62", d.BatteryPercent)
		}
		if fx.drones.releases != 1 {
			t.Errorf("drone released %d times, want 1", fx.drones.releases)
		}
		if len(fx.tracker.closed) != 1 || fx.tracker.closed[0] != "order-1" {
			t.Errorf("closed rooms = %v, want [order-1]", fx.tracker.closed)
		}

		// A duplicate submission observes the terminal status and must not
		// release the drone again.
		if _, err := fx.svc.VerifyCompletion(ctx, "order-1", "cust-1", code); !errors.Is(err, ErrOrderNotDelivering) {
			t.Fatalf("duplicate verify: err = %v, want ErrOrderNotDelivering", err)
		}
		if fx.drones.releases != 1 {
			t.Errorf("drone released %d times after duplicate, want 1", fx.drones.releases)
		}
	})
}

func TestUpdateBattery(t *testing.T) {
	assigned := func(t *testing.T) *fixture {
		t.Helper()
		fx := newFixture()
		if _, err := fx.svc.Assign(context.Background(), "order-1", "drone-1", "op-1"); err != nil {
			t.Fatalf("assign: %v", err)
		}
		return fx
	}

	t.Run("writes through to order and drone", func(t *testing.T) {
		fx := assigned(t)
		o, err := fx.svc.UpdateBattery(context.Background(), "order-1", "op-1", 47)
		if err != nil {
			t.Fatalf("update battery: %v", err)
		}
		if o.DroneBatteryPercent != 47 {
			t.Errorf("order battery = %d, want 47", o.DroneBatteryPercent)
		}
		if got := fx.drones.byID["drone-1"].BatteryPercent; got != 47 {
			t.Errorf("drone battery = %d, want 47", got)
		}
	})

	t.Run("rejects out-of-range values", func(t *testing.T) {
		fx := assigned(t)
		for _, pct := range []int{-1, 101} {
			if _, err := fx.svc.UpdateBattery(context.Background(), "order-1", "op-1", pct); !errors.Is(err, ErrBadRequest) {
				t.Errorf("battery %d: err = %v, want ErrBadRequest", pct, err)
			}
		}
	})

	t.Run("rejects orders not delivering", func(t *testing.T) {
		fx := newFixture() // still preparing, no drone
		if _, err := fx.svc.UpdateBattery(context.Background(), "order-1", "op-1", 50); !errors.Is(err, ErrOrderNotDelivering) {
			t.Fatalf("err = %v, want ErrOrderNotDelivering", err)
		}
	})
}

func TestNewConfirmCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := NewConfirmCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 characters", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains non-digit %q", code, c)
			}
		}
		seen[code] = true
	}
	// Leading zeros must be preserved, so "000123" style codes are possible
	// and the generator must not collapse to a handful of values.
	if len(seen) < 100 {
		t.Errorf("only %d distinct codes in 200 draws", len(seen))
	}
}
