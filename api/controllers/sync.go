package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/tillworks/posedge/api/responses"
	"github.com/tillworks/posedge/api/validators"
	"github.com/tillworks/posedge/internal/invoices"
	pkgerrors "github.com/tillworks/posedge/pkg/errors"
	"github.com/tillworks/posedge/pkg/logger"
)

// InvoiceEnqueueRequest wraps the opaque sale payload recorded offline.
type InvoiceEnqueueRequest struct {
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// InvoicesEnqueue records a sale for later sync.
func InvoicesEnqueue(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		var payload InvoiceEnqueueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inv, err := svc.Enqueue(r.Context(), payload.Payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, inv)
	}
}

// InvoicesPending lists invoices still awaiting acknowledgement.
func InvoicesPending(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		pending, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"pending": pending})
	}
}

// SyncTrigger runs a sync pass immediately. Partial failure still returns
// the report; the per-entry errors ride along as details.
func SyncTrigger(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		report, err := svc.Sync(r.Context(), "manual")
		if err != nil && report.Attempted == 0 {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body := map[string]any{"report": report}
		if err != nil {
			body["errors"] = err.Error()
		}
		responses.WriteSuccess(w, body)
	}
}
