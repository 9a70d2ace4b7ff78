// README: Cart store backed by PostgreSQL (jsonb lines, upsert per customer).
package cart

import (
	"context"
	"encoding/json"
	"errors"

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

// Get returns an empty cart when the customer has none yet.
func (s *Store) Get(ctx context.Context, customerID types.ID) (*Cart, error) {
	row := s.db.QueryRow(ctx, `
		SELECT lines, total_amount FROM carts WHERE customer_id = $1`, string(customerID))
	c := &Cart{CustomerID: customerID}
	var lines []byte
	err := row.Scan(&lines, &c.TotalAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &c.Lines); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) Put(ctx context.Context, c *Cart) error {
	c.RecomputeTotals()
	lines, err := json.Marshal(c.Lines)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO carts (customer_id, lines, total_amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id)
		DO UPDATE SET lines = EXCLUDED.lines, total_amount = EXCLUDED.total_amount`,
		string(c.CustomerID), lines, c.TotalAmount)
	return err
}

// Clear empties the customer's cart. Clearing an absent cart is a no-op, which
// keeps payment reconciliation idempotent.
func (s *Store) Clear(ctx context.Context, customerID types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE carts SET lines = '[]'::jsonb, total_amount = 0
		WHERE customer_id = $1`, string(customerID))
	return err
}
