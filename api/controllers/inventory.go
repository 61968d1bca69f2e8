package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillworks/posedge/api/responses"
	"github.com/tillworks/posedge/internal/inventory"
	"github.com/tillworks/posedge/internal/remote"
	pkgerrors "github.com/tillworks/posedge/pkg/errors"
	"github.com/tillworks/posedge/pkg/logger"
)

// InventoryCatalog serves the cached sellable catalog. The stale flag tells
// the till it is looking at last known-good data.
func InventoryCatalog(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		items, stale, err := svc.Catalog(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "stale": stale})
	}
}

// InventorySite serves the cached multi-branch stock view.
func InventorySite(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		rows, stale, err := svc.SiteInventory(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"inventory": rows, "stale": stale})
	}
}

// InventoryBalance queries the live per-item balance from the backend. This
// one is never cached; the caller wants the price right now or an honest
// failure.
func InventoryBalance(gateway remote.Gateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gateway == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "remote gateway unavailable"))
			return
		}

		stockID := chi.URLParam(r, "stockID")
		if stockID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stock id is required"))
			return
		}

		result, err := gateway.FetchItemBalance(r.Context(), stockID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newBalanceView(result))
	}
}

// balanceView flattens the tagged parse result for the till.
type balanceView struct {
	Status       string `json:"status"`
	Price        string `json:"price,omitempty"`
	QtyAvailable string `json:"qty_available,omitempty"`
	TaxMode      string `json:"tax_mode,omitempty"`
}

func newBalanceView(result remote.BalanceResult) balanceView {
	switch result.Status {
	case remote.BalanceOK:
		return balanceView{
			Status:       "ok",
			Price:        result.Balance.Price.String(),
			QtyAvailable: result.Balance.QtyAvailable.String(),
			TaxMode:      result.Balance.TaxMode,
		}
	case remote.BalanceMalformed:
		return balanceView{Status: "malformed"}
	default:
		return balanceView{Status: "empty"}
	}
}

// InventoryHoldReasons proxies the configurable hold reason list.
func InventoryHoldReasons(gateway remote.Gateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gateway == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "remote gateway unavailable"))
			return
		}

		reasons, err := gateway.FetchHoldReasons(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"reasons": reasons})
	}
}
