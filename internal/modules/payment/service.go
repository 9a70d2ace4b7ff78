// README: Payment reconciler: checkout initiation plus idempotent return/webhook handling.
package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"skyeats/internal/modules/order"
	"skyeats/internal/types"
)

var (
	ErrBadRequest       = errors.New("bad request")
	ErrNotFound         = errors.New("payment not found")
	ErrForbidden        = errors.New("payment belongs to another customer")
	ErrSignatureInvalid = errors.New("invalid gateway signature")
	ErrNotRefundable    = errors.New("payment is not refundable")
)

// Orders is the order-side surface reconciliation drives.
type Orders interface {
	GetByID(ctx context.Context, id types.ID) (*order.Order, error)
	ConfirmPayment(ctx context.Context, id, paymentID types.ID) error
}

type Stock interface {
	DecrementStock(ctx context.Context, id types.ID, qty int) (bool, error)
}

type Carts interface {
	Clear(ctx context.Context, customerID types.ID) error
}

// Ledger is the persistence surface of the reconciler. Satisfied by *Store.
type Ledger interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id types.ID) (*Payment, error)
	GetByOrder(ctx context.Context, orderID types.ID) (*Payment, error)
	ListByCustomer(ctx context.Context, customerID types.ID, limit, offset int) ([]*Payment, error)
	MarkSuccess(ctx context.Context, id types.ID, transactionID, bankCode, payDate string) (bool, error)
	MarkFailed(ctx context.Context, id types.ID, reason string) (bool, error)
	MarkRefunded(ctx context.Context, id types.ID) (bool, error)
}

type Service struct {
	gateway  *Gateway
	payments Ledger
	orders   Orders
	stock    Stock
	carts    Carts
}

func NewService(gateway *Gateway, payments Ledger, orders Orders, stock Stock, carts Carts) *Service {
	return &Service{gateway: gateway, payments: payments, orders: orders, stock: stock, carts: carts}
}

// Initiate records a pending payment and returns the hosted checkout URL.
// The transaction id is a placeholder until the gateway reports the real one.
// An abandoned checkout leaves a pending row behind; re-initiating reuses it
// so an order never accumulates more than one pending payment.
func (s *Service) Initiate(ctx context.Context, orderID, customerID types.ID, amount int64, clientIP, bankCode string) (string, *Payment, error) {
	if amount <= 0 {
		return "", nil, fmt.Errorf("%w: amount must be positive", ErrBadRequest)
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return "", nil, err
	}
	if o.CustomerID != customerID {
		return "", nil, ErrForbidden
	}
	if o.Status != order.StatusPending {
		return "", nil, fmt.Errorf("%w: order is not awaiting payment", ErrBadRequest)
	}

	existing, err := s.payments.GetByOrder(ctx, orderID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", nil, err
	}
	if err == nil && existing.Status == StatusPending {
		payURL := s.gateway.BuildPayURL(orderID, existing.Amount, clientIP, "Payment for order "+string(orderID), bankCode)
		return payURL, existing, nil
	}

	p := &Payment{
		ID:            newID(),
		OrderID:       orderID,
		CustomerID:    customerID,
		Amount:        amount,
		Method:        "vnpay",
		Status:        StatusPending,
		TransactionID: fmt.Sprintf("TEMP_%s_%d", customerID, time.Now().UnixMilli()),
		CreatedAt:     time.Now(),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return "", nil, err
	}

	payURL := s.gateway.BuildPayURL(orderID, amount, clientIP, "Payment for order "+string(orderID), bankCode)
	return payURL, p, nil
}

// ReturnResult is what the browser redirect handler renders.
type ReturnResult struct {
	Status        string
	OrderID       types.ID
	Amount        int64
	TransactionID string
	Message       string
}

// ConfirmReturn processes the browser redirect from the gateway. The redirect
// and the webhook race for the same callback; the conditional success update
// guarantees the side effects run once no matter which lands first.
func (s *Service) ConfirmReturn(ctx context.Context, params map[string]string) (*ReturnResult, error) {
	if !s.gateway.VerifySignature(params) {
		return nil, ErrSignatureInvalid
	}

	orderID := types.ID(params["vnp_TxnRef"])
	code := params["vnp_ResponseCode"]
	amount, _ := parseAmount(params["vnp_Amount"])

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	p, err := s.payments.GetByOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		// The initiate step should have written this row. Recover so a paid
		// customer is never dropped, but make the gap visible.
		log.Printf("payment: no pending record for order %s on return; creating one", orderID)
		p = &Payment{
			ID:         newID(),
			OrderID:    orderID,
			CustomerID: o.CustomerID,
			Amount:     amount,
			Method:     "vnpay",
			Status:     StatusPending,
			CreatedAt:  time.Now(),
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	res := &ReturnResult{
		OrderID:       orderID,
		Amount:        amount,
		TransactionID: params["vnp_TransactionNo"],
	}

	if code != "00" {
		reason := FailureReason(code)
		if _, err := s.payments.MarkFailed(ctx, p.ID, reason); err != nil {
			return nil, err
		}
		res.Status = "failed"
		res.Message = reason
		return res, nil
	}

	applied, err := s.payments.MarkSuccess(ctx, p.ID,
		params["vnp_TransactionNo"], params["vnp_BankCode"], params["vnp_PayDate"])
	if err != nil {
		return nil, err
	}
	if applied {
		s.applySuccess(ctx, o, p.ID)
	} else {
		log.Printf("payment: order %s already settled; skipping side effects", orderID)
	}
	res.Status = "success"
	res.Message = ResponseCodes["00"]
	return res, nil
}

// IPNResult is the acknowledgement body the gateway expects from the webhook.
type IPNResult struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// ConfirmIPN processes the server-to-server webhook. Unlike the return path it
// replies with gateway acknowledgement codes instead of errors, and it
// re-validates the paid amount against the recorded payment.
func (s *Service) ConfirmIPN(ctx context.Context, params map[string]string) IPNResult {
	if !s.gateway.VerifySignature(params) {
		return IPNResult{RspCode: "97", Message: "Invalid checksum"}
	}

	orderID := types.ID(params["vnp_TxnRef"])
	o, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		return IPNResult{RspCode: "01", Message: "Order not found"}
	}
	if err != nil {
		log.Printf("payment: ipn load order %s: %v", orderID, err)
		return IPNResult{RspCode: "99", Message: "Unknown error"}
	}

	p, err := s.payments.GetByOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return IPNResult{RspCode: "01", Message: "Payment not found"}
	}
	if err != nil {
		log.Printf("payment: ipn load payment for order %s: %v", orderID, err)
		return IPNResult{RspCode: "99", Message: "Unknown error"}
	}

	amount, ok := parseAmount(params["vnp_Amount"])
	if !ok || amount != p.Amount {
		return IPNResult{RspCode: "04", Message: "Invalid amount"}
	}
	if p.Status != StatusPending {
		return IPNResult{RspCode: "02", Message: "Order already confirmed"}
	}

	if code := params["vnp_ResponseCode"]; code != "00" {
		if _, err := s.payments.MarkFailed(ctx, p.ID, FailureReason(code)); err != nil {
			log.Printf("payment: ipn mark failed for order %s: %v", orderID, err)
			return IPNResult{RspCode: "99", Message: "Unknown error"}
		}
		return IPNResult{RspCode: "00", Message: "Confirm success"}
	}

	applied, err := s.payments.MarkSuccess(ctx, p.ID,
		params["vnp_TransactionNo"], params["vnp_BankCode"], params["vnp_PayDate"])
	if err != nil {
		log.Printf("payment: ipn mark success for order %s: %v", orderID, err)
		return IPNResult{RspCode: "99", Message: "Unknown error"}
	}
	if !applied {
		// Lost the race with the return path after our status read.
		return IPNResult{RspCode: "02", Message: "Order already confirmed"}
	}
	s.applySuccess(ctx, o, p.ID)
	return IPNResult{RspCode: "00", Message: "Confirm success"}
}

// applySuccess runs the once-only side effects of a settled payment: order
// confirmation, stock decrements, cart cleanup. Each effect is independent so
// a failure in one is logged rather than blocking the rest.
func (s *Service) applySuccess(ctx context.Context, o *order.Order, paymentID types.ID) {
	if err := s.orders.ConfirmPayment(ctx, o.ID, paymentID); err != nil {
		log.Printf("payment: confirm order %s: %v", o.ID, err)
	}
	for _, ln := range o.Lines {
		found, err := s.stock.DecrementStock(ctx, ln.ItemID, ln.Quantity)
		if err != nil {
			log.Printf("payment: decrement stock for item %s: %v", ln.ItemID, err)
			continue
		}
		if !found {
			log.Printf("payment: item %s gone from catalog; stock not adjusted", ln.ItemID)
		}
	}
	if err := s.carts.Clear(ctx, o.CustomerID); err != nil {
		log.Printf("payment: clear cart for customer %s: %v", o.CustomerID, err)
	}
}

func (s *Service) Get(ctx context.Context, id, customerID types.ID) (*Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CustomerID != customerID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID types.ID, limit, offset int) ([]*Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.payments.ListByCustomer(ctx, customerID, limit, offset)
}

// Refund flips a settled payment to refunded. Pending or failed payments have
// nothing to refund.
func (s *Service) Refund(ctx context.Context, id, customerID types.ID) (*Payment, error) {
	p, err := s.Get(ctx, id, customerID)
	if err != nil {
		return nil, err
	}
	ok, err := s.payments.MarkRefunded(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRefundable
	}
	p.Status = StatusRefunded
	return p, nil
}

// parseAmount decodes the gateway's x100 wire amount.
func parseAmount(raw string) (int64, bool) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n / 100, true
}

func newID() types.ID {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return types.ID(hex.EncodeToString(buf))
}
