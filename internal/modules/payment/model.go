// README: Payment document; exactly one per order reaches a terminal status.
package payment

import (
	"time"

	"skyeats/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
	StatusCancelled Status = "cancelled"
)

type Payment struct {
	ID            types.ID
	OrderID       types.ID
	CustomerID    types.ID
	Amount        int64
	Method        string
	Status        Status
	TransactionID string
	BankCode      string
	PayDate       string
	FailureReason string
	CreatedAt     time.Time
}
