// README: Drone store backed by PostgreSQL records and Redis GEO for live positions.
package drone

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"skyeats/internal/types"
)

const geoKey = "drones:positions"

type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, rdb *redis.Client) *Store {
	return &Store{db: db, redis: rdb}
}

const droneColumns = `
	id, shop_id, model, serial_number, status, battery_percent,
	max_speed_kmh, range_km, flight_time_min, payload_kg, total_flights, created_at`

func (s *Store) Create(ctx context.Context, d *Drone) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO drones (
			id, shop_id, model, serial_number, status, battery_percent,
			max_speed_kmh, range_km, flight_time_min, payload_kg, total_flights, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(d.ID), string(d.ShopID), d.Model, d.SerialNumber, string(d.Status), d.BatteryPercent,
		d.Specs.MaxSpeedKmh, d.Specs.RangeKm, d.Specs.FlightTimeMin, d.Specs.PayloadKg,
		d.TotalFlights, d.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Drone, error) {
	row := s.db.QueryRow(ctx, `SELECT `+droneColumns+` FROM drones WHERE id = $1`, string(id))
	d, err := scanDrone(row)
	if err != nil {
		return nil, err
	}
	d.LastPosition = s.lastPosition(ctx, id)
	return d, nil
}

// ListEligible returns the shop's drones that can take an assignment:
// available and holding at least minBattery percent charge.
func (s *Store) ListEligible(ctx context.Context, shopID types.ID, minBattery int) ([]*Drone, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+droneColumns+` FROM drones
		WHERE shop_id = $1 AND status = 'available' AND battery_percent >= $2
		ORDER BY battery_percent DESC`,
		string(shopID), minBattery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Drone
	for rows.Next() {
		d, err := scanDrone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetStatus is a last-writer-wins status write. Assignment transitions must
// not come through here; the service guards that.
func (s *Store) SetStatus(ctx context.Context, id types.ID, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE drones SET status = $1 WHERE id = $2`,
		string(to), string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Release flips a busy drone back to available. A negative battery keeps the
// current value; otherwise the last reported level is written through.
func (s *Store) Release(ctx context.Context, id types.ID, battery int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE drones
		SET status = 'available',
		    battery_percent = CASE WHEN $1 >= 0 THEN $1 ELSE battery_percent END
		WHERE id = $2 AND status = 'busy'`,
		battery, string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) UpdateBattery(ctx context.Context, id types.ID, percent int) error {
	_, err := s.db.Exec(ctx, `UPDATE drones SET battery_percent = $1 WHERE id = $2`,
		percent, string(id))
	return err
}

// UpdatePosition records the live position in Redis GEO and writes the
// battery level through to the drone record. Both writes are
// last-writer-wins; a lost update is overwritten by the next report.
func (s *Store) UpdatePosition(ctx context.Context, id types.ID, pos types.Point, battery int) error {
	if err := s.redis.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err(); err != nil {
		return err
	}
	if battery >= 0 {
		return s.UpdateBattery(ctx, id, battery)
	}
	return nil
}

func (s *Store) lastPosition(ctx context.Context, id types.ID) *types.Point {
	locs, err := s.redis.GeoPos(ctx, geoKey, string(id)).Result()
	if err != nil || len(locs) == 0 || locs[0] == nil {
		return nil
	}
	return &types.Point{Lat: locs[0].Latitude, Lng: locs[0].Longitude}
}

func scanDrone(row pgx.Row) (*Drone, error) {
	var d Drone
	err := row.Scan(
		&d.ID, &d.ShopID, &d.Model, &d.SerialNumber, &d.Status, &d.BatteryPercent,
		&d.Specs.MaxSpeedKmh, &d.Specs.RangeKm, &d.Specs.FlightTimeMin, &d.Specs.PayloadKg,
		&d.TotalFlights, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
