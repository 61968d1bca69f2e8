package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tillworks/posedge/api/controllers"
	"github.com/tillworks/posedge/api/middleware"
	"github.com/tillworks/posedge/internal/cart"
	"github.com/tillworks/posedge/internal/inventory"
	"github.com/tillworks/posedge/internal/invoices"
	"github.com/tillworks/posedge/internal/payments"
	"github.com/tillworks/posedge/internal/remote"
	"github.com/tillworks/posedge/pkg/config"
	"github.com/tillworks/posedge/pkg/logger"
	"github.com/tillworks/posedge/pkg/store"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	st *store.Store,
	gateway remote.Gateway,
	inventoryService inventory.Service,
	cartService cart.Service,
	paymentsEngine payments.Engine,
	invoiceService invoices.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, st))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Get("/catalog", controllers.InventoryCatalog(inventoryService, logg))
		r.Get("/site", controllers.InventorySite(inventoryService, logg))
		r.Get("/balance/{stockID}", controllers.InventoryBalance(gateway, logg))
		r.Get("/hold-reasons", controllers.InventoryHoldReasons(gateway, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", controllers.CartFetch(cartService, logg))
		r.Post("/items", controllers.CartAddItem(cartService, logg))
		r.Put("/items", controllers.CartUpdateItem(cartService, logg))
		r.Delete("/items", controllers.CartRemoveItem(cartService, logg))
		r.Post("/save", controllers.CartSave(cartService, logg))
		r.Post("/hold", controllers.CartHold(cartService, logg))
		r.Post("/resume/{cartID}", controllers.CartResume(cartService, logg))
		r.Delete("/", controllers.CartClear(cartService, logg))
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Get("/", controllers.PaymentsFetch(paymentsEngine, logg))
		r.Post("/", controllers.PaymentsAdd(paymentsEngine, logg))
		r.Post("/pending/confirm", controllers.PaymentsConfirmPending(paymentsEngine, logg))
		r.Post("/pending/cancel", controllers.PaymentsCancelPending(paymentsEngine, logg))
		r.Delete("/", controllers.PaymentsRemove(paymentsEngine, logg))
		r.Delete("/all", controllers.PaymentsClear(paymentsEngine, logg))
	})

	r.Route("/api/v1/invoices", func(r chi.Router) {
		r.Post("/", controllers.InvoicesEnqueue(invoiceService, logg))
		r.Get("/pending", controllers.InvoicesPending(invoiceService, logg))
		r.Post("/sync", controllers.SyncTrigger(invoiceService, logg))
	})

	return r
}
