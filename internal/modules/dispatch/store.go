// README: Exclusive-assignment transaction binding one drone to one order.
package dispatch

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"skyeats/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Assign runs both conditional updates in one transaction. Each WHERE clause
// guards the precondition: the order must still be preparing and the drone
// still available. If either update affects zero rows the transaction rolls
// back and the corresponding flag comes back false, so of two concurrent
// callers exactly one can commit.
func (s *Store) Assign(ctx context.Context, orderID, droneID types.ID, code string, distanceKm float64, battery int) (orderOK, droneOK bool, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = 'delivering',
		    drone_id = $1,
		    confirm_code = $2,
		    delivery_distance_km = $3,
		    drone_battery = $4
		WHERE id = $5 AND status = 'preparing'`,
		string(droneID), code, distanceKm, battery, string(orderID))
	if err != nil {
		return false, false, err
	}
	orderOK = tag.RowsAffected() == 1

	tag, err = tx.Exec(ctx, `
		UPDATE drones
		SET status = 'busy',
		    total_flights = total_flights + 1
		WHERE id = $1 AND status = 'available'`,
		string(droneID))
	if err != nil {
		return false, false, err
	}
	droneOK = tag.RowsAffected() == 1

	if !orderOK || !droneOK {
		return orderOK, droneOK, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return false, false, err
	}
	return true, true, nil
}
