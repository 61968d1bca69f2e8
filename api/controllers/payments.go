package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tillworks/posedge/api/responses"
	"github.com/tillworks/posedge/api/validators"
	"github.com/tillworks/posedge/internal/payments"
	pkgerrors "github.com/tillworks/posedge/pkg/errors"
	"github.com/tillworks/posedge/pkg/logger"
)

// PaymentRequest is the wire shape for recording one tender.
type PaymentRequest struct {
	TransID     string `json:"trans_id" validate:"required"`
	TransAmount string `json:"trans_amount" validate:"required"`
	TransTime   string `json:"trans_time"`
	Reference   string `json:"reference"`
	PaymentType string `json:"payment_type" validate:"required"`
	Balance     string `json:"balance" validate:"required"`
}

// PaymentKeyRequest identifies a committed payment for removal.
type PaymentKeyRequest struct {
	PaymentType string `json:"payment_type" validate:"required"`
	TransID     string `json:"trans_id" validate:"required"`
}

// PaymentsAdd runs the add-payment state machine and reports whether the
// tender committed or is parked awaiting confirmation.
func PaymentsAdd(eng payments.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments engine unavailable"))
			return
		}

		var payload PaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := decimal.NewFromString(payload.Balance)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid balance"))
			return
		}

		transTime := time.Now()
		if payload.TransTime != "" {
			parsed, err := time.Parse(time.RFC3339, payload.TransTime)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid trans_time"))
				return
			}
			transTime = parsed
		}

		outcome, err := eng.ValidateAndAddPayment(payments.Payment{
			TransID:     payload.TransID,
			TransAmount: payload.TransAmount,
			TransTime:   transTime,
			Reference:   payload.Reference,
		}, payload.PaymentType, balance)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, outcome)
	}
}

// PaymentsConfirmPending commits the parked payment.
func PaymentsConfirmPending(eng payments.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments engine unavailable"))
			return
		}

		outcome, err := eng.ConfirmPendingPayment()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

// PaymentsCancelPending discards the parked payment.
func PaymentsCancelPending(eng payments.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments engine unavailable"))
			return
		}

		if err := eng.CancelPendingPayment(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// PaymentsRemove drops one committed payment.
func PaymentsRemove(eng payments.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments engine unavailable"))
			return
		}

		var payload PaymentKeyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := eng.RemoveItemFromPayments(payload.PaymentType, payload.TransID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// PaymentsFetch returns the committed carts, pending slot, and running total.
func PaymentsFetch(eng payments.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments engine unavailable"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"carts":      eng.Carts(),
			"pending":    eng.Pending(),
			"total_paid": eng.TotalPaid().String(),
		})
	}
}

// PaymentsClear resets the engine for the next sale.
func PaymentsClear(eng payments.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments engine unavailable"))
			return
		}

		eng.ClearPaymentCarts()
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
