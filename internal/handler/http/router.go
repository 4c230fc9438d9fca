package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajoedv/fotolio/internal/service"
	"github.com/ajoedv/fotolio/pkg/health"
	"github.com/ajoedv/fotolio/pkg/middleware"
)

// RouterConfig carries the handler dependencies and the knobs the router
// needs beyond them.
type RouterConfig struct {
	Cart       *service.CartService
	Checkout   *service.CheckoutService
	Payment    *service.PaymentService
	Settlement *service.SettlementService
	Orders     *service.OrderService

	Health        *health.Handler
	TokenValidate middleware.TokenValidator

	// Rate limiting for the payment setup endpoint.
	PaymentRPS   int
	PaymentBurst int

	Logger *slog.Logger
}

// NewRouter creates a chi router with all shop service routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("shop"))
	r.Use(middleware.Tracing("shop"))

	// Health and metrics endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	cartHandler := NewCartHandler(cfg.Cart, cfg.Logger)
	checkoutHandler := NewCheckoutHandler(cfg.Checkout, cfg.Payment, cfg.Settlement, cfg.Logger)
	orderHandler := NewOrderHandler(cfg.Orders, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(cfg.TokenValidate))
		r.Use(middleware.RequestLogger(cfg.Logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Get("/summary", cartHandler.Summary)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{id}", cartHandler.UpdateItem)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkoutHandler.GetCheckout)
			r.Post("/shipping", checkoutHandler.SubmitShipping)
			r.With(middleware.RateLimit(cfg.PaymentRPS, cfg.PaymentBurst, cfg.Logger)).
				Post("/payment", checkoutHandler.SetupPayment)
			r.Get("/success", checkoutHandler.Settle)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.List)
			r.Get("/{orderNumber}", orderHandler.GetByNumber)
		})
	})

	return r
}
