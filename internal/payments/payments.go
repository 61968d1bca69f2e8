package payments

import "time"

// Payment is one tender entry as received from the payment provider or
// keyed in by the cashier. Amounts travel as decimal strings end to end.
type Payment struct {
	TransID     string    `json:"TransID"`
	TransAmount string    `json:"TransAmount"`
	TransTime   time.Time `json:"TransTime"`
	Reference   string    `json:"Reference,omitempty"`
}

// PaymentCart groups the session's payments for one payment type. A
// CASH-classified type holds at most one merged payment; any other type
// holds itemized payments with unique transaction ids.
type PaymentCart struct {
	PaymentType string    `json:"payment_type"`
	Payments    []Payment `json:"payments"`
}

// PendingPayment is the transient awaiting-confirmation state entered when
// a payment would overshoot the remaining balance. At most one exists.
type PendingPayment struct {
	Item           Payment `json:"item"`
	PaymentType    string  `json:"paymentType"`
	RequiredAmount string  `json:"requiredAmount"`
}

// AddOutcome reports how a payment attempt resolved.
type AddOutcome struct {
	Committed bool            `json:"committed"`
	Pending   *PendingPayment `json:"pending,omitempty"`
}
