// README: Payment store; terminal transitions are conditional first-writer-wins updates.
package payment

import (
	"context"
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

const paymentColumns = `
	id, order_id, customer_id, amount, method, status,
	transaction_id, bank_code, pay_date, failure_reason, created_at`

func (s *Store) Create(ctx context.Context, p *Payment) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO payments (
			id, order_id, customer_id, amount, method, status,
			transaction_id, bank_code, pay_date, failure_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(p.ID), string(p.OrderID), string(p.CustomerID),
		p.Amount, p.Method, string(p.Status),
		p.TransactionID, p.BankCode, p.PayDate, p.FailureReason, p.CreatedAt,
	)
	return err
}

func (s *Store) GetByID(ctx context.Context, id types.ID) (*Payment, error) {
	row := s.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, string(id))
	return scanPayment(row)
}

func (s *Store) GetByOrder(ctx context.Context, orderID types.ID) (*Payment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, string(orderID))
	return scanPayment(row)
}

func (s *Store) ListByCustomer(ctx context.Context, customerID types.ID, limit, offset int) ([]*Payment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, string(customerID), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSuccess settles one specific pending payment. Keying on the payment id
// keeps the at-most-one-success-per-order rule even if stray duplicate rows
// exist, and the status guard makes re-delivered callbacks no-ops: only the
// first writer sees an affected row, and only that caller runs the success
// side effects.
func (s *Store) MarkSuccess(ctx context.Context, id types.ID, transactionID, bankCode, payDate string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE payments
		SET status = 'success', transaction_id = $1, bank_code = $2, pay_date = $3
		WHERE id = $4 AND status = 'pending'`,
		transactionID, bankCode, payDate, string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkFailed(ctx context.Context, id types.ID, reason string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE payments
		SET status = 'failed', failure_reason = $1
		WHERE id = $2 AND status = 'pending'`,
		reason, string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkRefunded(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE payments
		SET status = 'refunded'
		WHERE id = $1 AND status = 'success'`, string(id))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var id, orderID, customerID, status string
	err := row.Scan(
		&id, &orderID, &customerID, &p.Amount, &p.Method, &status,
		&p.TransactionID, &p.BankCode, &p.PayDate, &p.FailureReason, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ID = types.ID(id)
	p.OrderID = types.ID(orderID)
	p.CustomerID = types.ID(customerID)
	p.Status = Status(status)
	return &p, nil
}
