package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Products *ProductHandler
	Orders   *OrdersHandler

	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
}

// NewRouter wires the storefront API. /health and /metrics need no user.
//
// RequestTimeout applies to every route except POST /api/v1/checkout, which
// always answers with the terminal state; see CheckoutBudget.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(MockAuthMiddleware)
	r.Use(RequestLogger(cfg.Logger, cfg.Metrics))

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RequestTimeout > 0 {
		limit = middleware.Timeout(cfg.RequestTimeout)
	}

	r.With(limit).Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.With(limit).Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", cfg.Checkout.InitiateCheckout)

		r.Group(func(r chi.Router) {
			r.Use(limit)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", cfg.Products.Get)
				r.Get("/{id}", cfg.Products.GetByID)
			})
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cfg.Cart.GetCart)
				r.Delete("/", cfg.Cart.ClearCart)
				r.Post("/items", cfg.Cart.AddItem)
				r.Put("/items/{product_id}", cfg.Cart.UpdateQuantity)
				r.Delete("/items/{product_id}", cfg.Cart.RemoveItem)
			})
			r.Get("/checkout", cfg.Checkout.GetCheckout)
			r.Delete("/checkout", cfg.Checkout.ResetCheckout)
			r.Get("/orders", cfg.Orders.ListOrders)
		})
	})

	return r
}

// CheckoutBudget is the longest a checkout request can take: one cart load
// and three backend calls, each bounded by backendTimeout, plus the payment.
func CheckoutBudget(backendTimeout, paymentDelay time.Duration) time.Duration {
	return 4*backendTimeout + paymentDelay
}
