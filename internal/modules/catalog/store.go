// README: Catalog store backed by PostgreSQL (reads for snapshots, stock writes).
package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"skyeats/internal/types"
)

var ErrNotFound = errors.New("catalog record not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetItem(ctx context.Context, id types.ID) (*Item, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, shop_id, name, image, category, food_type, price, stock
		FROM items WHERE id = $1`, string(id))
	var it Item
	err := row.Scan(&it.ID, &it.ShopID, &it.Name, &it.Image, &it.Category, &it.FoodType, &it.Price, &it.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) GetShop(ctx context.Context, id types.ID) (*Shop, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_id, name, city, state, address, lat, lng
		FROM shops WHERE id = $1`, string(id))
	var sh Shop
	err := row.Scan(&sh.ID, &sh.OwnerID, &sh.Name, &sh.City, &sh.State, &sh.Address, &sh.Coordinates.Lat, &sh.Coordinates.Lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// DecrementStock reduces the item's stock by qty, flooring at zero. A missing
// item affects zero rows; callers decide whether that matters.
func (s *Store) DecrementStock(ctx context.Context, id types.ID, qty int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE items SET stock = GREATEST(stock - $1, 0) WHERE id = $2`,
		qty, string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
