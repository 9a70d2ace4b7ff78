// README: Order store backed by PostgreSQL; lines are stored as a jsonb document.
package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"skyeats/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const orderColumns = `
	id, customer_id, lines, total_amount,
	target_address, target_city, target_state, target_lat, target_lng, target_note,
	contact_name, contact_phone, contact_email,
	payment_id, status, drone_id, drone_battery, confirm_code, delivery_distance_km,
	estimated_delivery_at, created_at, delivered_at, cancelled_at, cancel_reason`

func (s *Store) Create(ctx context.Context, o *Order) error {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, lines, total_amount,
			target_address, target_city, target_state, target_lat, target_lng, target_note,
			contact_name, contact_phone, contact_email,
			status, drone_battery, confirm_code, delivery_distance_km,
			estimated_delivery_at, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10,
			$11, $12, $13,
			$14, $15, $16, $17,
			$18, $19
		)`,
		string(o.ID),
		string(o.CustomerID),
		lines,
		o.TotalAmount,
		o.Target.Address, o.Target.City, o.Target.State, o.Target.Coordinates.Lat, o.Target.Coordinates.Lng, o.Target.Note,
		o.Contact.Name, o.Contact.Phone, o.Contact.Email,
		string(o.Status),
		o.DroneBatteryPercent,
		o.ConfirmCode,
		o.DeliveryDistanceKm,
		o.EstimatedDeliveryAt,
		o.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
	return scanOrder(row)
}

// GetForCustomer returns the order only when it belongs to the customer.
// Non-owned orders read as not found, matching the external API contract.
func (s *Store) GetForCustomer(ctx context.Context, id, customerID types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE id = $1 AND customer_id = $2`, string(id), string(customerID))
	return scanOrder(row)
}

// GetForShopOwner returns the order only when at least one line belongs to a
// shop owned by ownerID.
func (s *Store) GetForShopOwner(ctx context.Context, id, ownerID types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE id = $1 AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(lines) l
			WHERE l->>'shop_owner_id' = $2
		)`, string(id), string(ownerID))
	return scanOrder(row)
}

func (s *Store) ListByCustomer(ctx context.Context, customerID types.ID, status Status, limit, offset int) ([]*Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE customer_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		string(customerID), string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (s *Store) ListByShopOwner(ctx context.Context, ownerID types.ID, status Status, limit, offset int) ([]*Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE EXISTS (
			SELECT 1 FROM jsonb_array_elements(lines) l
			WHERE l->>'shop_owner_id' = $1
		) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		string(ownerID), string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ActiveByDrone returns the single in-flight order assigned to the drone, if
// any. Used by a drone to recover its delivery after a restart.
func (s *Store) ActiveByDrone(ctx context.Context, droneID types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE drone_id = $1 AND status = 'delivering'`, string(droneID))
	return scanOrder(row)
}

// UpdateStatus performs the conditional lifecycle move. The WHERE clause on
// the previous status makes concurrent writers race safely: the loser
// affects zero rows. The confirm code survives only while delivering, and the
// drone reference is cleared on cancellation (it is kept on completion for
// audit).
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, reason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    confirm_code = CASE WHEN $1 = 'delivering' THEN confirm_code ELSE '' END,
		    drone_id = CASE WHEN $1 = 'cancelled' THEN NULL ELSE drone_id END,
		    delivered_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE delivered_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
		    cancel_reason = COALESCE($2, cancel_reason)
		WHERE id = $3 AND status = $4`,
		string(to), reason, string(id), string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetPaymentRef links the successful payment document to the order.
func (s *Store) SetPaymentRef(ctx context.Context, id, paymentID types.ID) error {
	_, err := s.db.Exec(ctx, `UPDATE orders SET payment_id = $1 WHERE id = $2`,
		string(paymentID), string(id))
	return err
}

// UpdateBattery writes the tracked battery value; valid only while delivering.
func (s *Store) UpdateBattery(ctx context.Context, id types.ID, percent int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET drone_battery = $1
		WHERE id = $2 AND status = 'delivering'`, percent, string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_status_events (
			order_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func scanOrders(rows pgx.Rows) ([]*Order, error) {
	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var lines []byte
	var paymentID, droneID, cancelReason sql.NullString
	var estimatedAt, deliveredAt, cancelledAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.CustomerID, &lines, &o.TotalAmount,
		&o.Target.Address, &o.Target.City, &o.Target.State, &o.Target.Coordinates.Lat, &o.Target.Coordinates.Lng, &o.Target.Note,
		&o.Contact.Name, &o.Contact.Phone, &o.Contact.Email,
		&paymentID, &o.Status, &droneID, &o.DroneBatteryPercent, &o.ConfirmCode, &o.DeliveryDistanceKm,
		&estimatedAt, &o.CreatedAt, &deliveredAt, &cancelledAt, &cancelReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return nil, err
	}
	if paymentID.Valid {
		v := types.ID(paymentID.String)
		o.PaymentID = &v
	}
	if droneID.Valid {
		v := types.ID(droneID.String)
		o.DroneID = &v
	}
	if cancelReason.Valid {
		o.CancelReason = &cancelReason.String
	}
	o.EstimatedDeliveryAt = toTimePtr(estimatedAt)
	o.DeliveredAt = toTimePtr(deliveredAt)
	o.CancelledAt = toTimePtr(cancelledAt)
	return &o, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
