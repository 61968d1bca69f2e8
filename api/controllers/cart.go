package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tillworks/posedge/api/responses"
	"github.com/tillworks/posedge/api/validators"
	cartsvc "github.com/tillworks/posedge/internal/cart"
	pkgerrors "github.com/tillworks/posedge/pkg/errors"
	"github.com/tillworks/posedge/pkg/logger"
	"github.com/tillworks/posedge/pkg/types"
)

// CartLineRequest is the wire shape for adding or updating a cart line.
type CartLineRequest struct {
	StockID     string `json:"stock_id" validate:"required"`
	Description string `json:"description"`
	Rate        string `json:"rate"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
	MaxQuantity int    `json:"max_quantity" validate:"min=0"`
	Discount    string `json:"discount"`
	Kit         string `json:"kit"`
	Units       string `json:"units"`
	MBFlag      string `json:"mb_flag"`
}

func (p CartLineRequest) toLine() (cartsvc.Line, error) {
	rate := decimal.Zero
	if p.Rate != "" {
		parsed, err := decimal.NewFromString(p.Rate)
		if err != nil {
			return cartsvc.Line{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rate")
		}
		rate = parsed
	}
	return cartsvc.Line{
		Item: types.Item{
			StockID:     p.StockID,
			Description: p.Description,
			Rate:        rate,
			Kit:         p.Kit,
			Units:       p.Units,
			MBFlag:      p.MBFlag,
		},
		Quantity:    p.Quantity,
		Discount:    p.Discount,
		MaxQuantity: p.MaxQuantity,
	}, nil
}

// CartLineKeyRequest identifies a line for removal.
type CartLineKeyRequest struct {
	StockID     string `json:"stock_id" validate:"required"`
	Description string `json:"description"`
}

// CartAddItem merges a line into the working cart.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload CartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := payload.toLine()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddItem(r.Context(), line)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CartRemoveItem drops a line from the working cart.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload CartLineKeyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RemoveItem(r.Context(), types.ItemKey{
			StockID:     payload.StockID,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CartUpdateItem replaces a line verbatim.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload CartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := payload.toLine()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateItem(r.Context(), line)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CartFetch returns the working cart snapshot, which may be null.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		responses.WriteSuccess(w, svc.Current())
	}
}

// CartSave re-persists the working cart.
func CartSave(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		result, err := svc.Save(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CartClear removes the cart durably and from memory.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		if err := svc.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// CartHold parks the working cart, keeping the durable record for resume.
func CartHold(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		if err := svc.Hold(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "held"})
	}
}

// CartResume loads a held cart by id.
func CartResume(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		cartID := chi.URLParam(r, "cartID")
		if cartID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required"))
			return
		}

		loaded, found, err := svc.Load(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "held cart not found"))
			return
		}
		responses.WriteSuccess(w, loaded)
	}
}
