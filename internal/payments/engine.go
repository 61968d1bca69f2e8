package payments

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/tillworks/posedge/pkg/errors"
)

// Engine owns the session's payment carts and the two-step confirmation
// flow. Like the cart aggregate it is the single writer of its state; the
// UI only ever reads snapshots.
type Engine interface {
	ValidateAndAddPayment(item Payment, paymentType string, balance decimal.Decimal) (AddOutcome, error)
	ConfirmPendingPayment() (AddOutcome, error)
	CancelPendingPayment() error
	RemoveItemFromPayments(paymentType, transID string) error
	ClearPaymentCarts()
	Carts() []PaymentCart
	Pending() *PendingPayment
	TotalPaid() decimal.Decimal
}

type engine struct {
	mu        sync.Mutex
	carts     []PaymentCart
	pending   *PendingPayment
	cashTypes map[string]struct{}
}

// NewEngine builds a payment engine. cashTypes lists the payment type
// strings subject to summation instead of itemized accumulation.
func NewEngine(cashTypes []string) Engine {
	classified := make(map[string]struct{}, len(cashTypes))
	for _, t := range cashTypes {
		classified[normalizeType(t)] = struct{}{}
	}
	if len(classified) == 0 {
		classified[normalizeType("CASH")] = struct{}{}
	}
	return &engine{cashTypes: classified}
}

// ValidateAndAddPayment runs the per-attempt state machine. Cash commits
// unconditionally (overpayment is change); other tenders that overshoot the
// remaining balance park in the pending slot until confirmed or cancelled.
func (e *engine) ValidateAndAddPayment(item Payment, paymentType string, balance decimal.Decimal) (AddOutcome, error) {
	amount, err := parseAmount(item.TransAmount)
	if err != nil {
		return AddOutcome{}, err
	}
	if strings.TrimSpace(paymentType) == "" {
		return AddOutcome{}, pkgerrors.New(pkgerrors.CodeValidation, "payment type is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending != nil {
		return AddOutcome{}, pkgerrors.New(pkgerrors.CodeStateConflict,
			"another payment is awaiting confirmation")
	}

	if e.isCash(paymentType) {
		e.commitCashLocked(item, paymentType, amount)
		return AddOutcome{Committed: true}, nil
	}

	if amount.GreaterThan(balance) {
		e.pending = &PendingPayment{
			Item:           item,
			PaymentType:    paymentType,
			RequiredAmount: balance.String(),
		}
		return AddOutcome{Pending: e.snapshotPendingLocked()}, nil
	}

	if err := e.commitItemizedLocked(item, paymentType); err != nil {
		return AddOutcome{}, err
	}
	return AddOutcome{Committed: true}, nil
}

// ConfirmPendingPayment commits the parked payment exactly as if the
// balance had not been exceeded.
func (e *engine) ConfirmPendingPayment() (AddOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil {
		return AddOutcome{}, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment awaiting confirmation")
	}

	item := e.pending.Item
	paymentType := e.pending.PaymentType
	e.pending = nil

	if e.isCash(paymentType) {
		amount, err := parseAmount(item.TransAmount)
		if err != nil {
			return AddOutcome{}, err
		}
		e.commitCashLocked(item, paymentType, amount)
		return AddOutcome{Committed: true}, nil
	}

	if err := e.commitItemizedLocked(item, paymentType); err != nil {
		return AddOutcome{}, err
	}
	return AddOutcome{Committed: true}, nil
}

// CancelPendingPayment discards the parked payment.
func (e *engine) CancelPendingPayment() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no payment awaiting confirmation")
	}
	e.pending = nil
	return nil
}

// RemoveItemFromPayments drops the matching payment; an emptied cart is
// removed entirely so no empty entries persist.
func (e *engine) RemoveItemFromPayments(paymentType, transID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for ci, cart := range e.carts {
		if !strings.EqualFold(cart.PaymentType, paymentType) {
			continue
		}
		for pi, payment := range cart.Payments {
			if payment.TransID != transID {
				continue
			}
			cart.Payments = append(cart.Payments[:pi], cart.Payments[pi+1:]...)
			if len(cart.Payments) == 0 {
				e.carts = append(e.carts[:ci], e.carts[ci+1:]...)
			} else {
				e.carts[ci].Payments = cart.Payments
			}
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

// ClearPaymentCarts resets the engine to idle with no carts and no pending
// payment.
func (e *engine) ClearPaymentCarts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.carts = nil
	e.pending = nil
}

// Carts returns a snapshot of the payment carts.
func (e *engine) Carts() []PaymentCart {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]PaymentCart, len(e.carts))
	for i, cart := range e.carts {
		out[i] = PaymentCart{
			PaymentType: cart.PaymentType,
			Payments:    append([]Payment(nil), cart.Payments...),
		}
	}
	return out
}

// Pending returns a snapshot of the awaiting-confirmation payment, or nil.
func (e *engine) Pending() *PendingPayment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotPendingLocked()
}

// TotalPaid sums every committed payment across all carts.
func (e *engine) TotalPaid() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := decimal.Zero
	for _, cart := range e.carts {
		for _, payment := range cart.Payments {
			if amount, err := decimal.NewFromString(payment.TransAmount); err == nil {
				total = total.Add(amount)
			}
		}
	}
	return total
}

func (e *engine) snapshotPendingLocked() *PendingPayment {
	if e.pending == nil {
		return nil
	}
	copied := *e.pending
	return &copied
}

// commitCashLocked merges into the type's single cash payment, summing
// amounts and taking the newest transaction time.
func (e *engine) commitCashLocked(item Payment, paymentType string, amount decimal.Decimal) {
	idx := e.findCartLocked(paymentType)
	if idx < 0 {
		e.carts = append(e.carts, PaymentCart{PaymentType: paymentType, Payments: []Payment{item}})
		return
	}

	cart := &e.carts[idx]
	if len(cart.Payments) == 0 {
		cart.Payments = []Payment{item}
		return
	}

	existing := &cart.Payments[0]
	current, err := decimal.NewFromString(existing.TransAmount)
	if err != nil {
		current = decimal.Zero
	}
	existing.TransAmount = current.Add(amount).String()
	existing.TransTime = item.TransTime
}

// commitItemizedLocked appends after rejecting duplicate transaction ids
// within the payment type.
func (e *engine) commitItemizedLocked(item Payment, paymentType string) error {
	idx := e.findCartLocked(paymentType)
	if idx < 0 {
		e.carts = append(e.carts, PaymentCart{PaymentType: paymentType, Payments: []Payment{item}})
		return nil
	}

	for _, existing := range e.carts[idx].Payments {
		if existing.TransID == item.TransID {
			return pkgerrors.New(pkgerrors.CodeConflict, "transaction already recorded").
				WithDetails(map[string]any{"trans_id": item.TransID, "payment_type": paymentType})
		}
	}
	e.carts[idx].Payments = append(e.carts[idx].Payments, item)
	return nil
}

func (e *engine) findCartLocked(paymentType string) int {
	for i, cart := range e.carts {
		if strings.EqualFold(cart.PaymentType, paymentType) {
			return i
		}
	}
	return -1
}

func (e *engine) isCash(paymentType string) bool {
	_, ok := e.cashTypes[normalizeType(paymentType)]
	return ok
}

func normalizeType(paymentType string) string {
	return strings.ToUpper(strings.TrimSpace(paymentType))
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment amount")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	return amount, nil
}
