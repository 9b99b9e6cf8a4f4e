package api

import (
	"net/http"

	"lilinku-be/internal/config"
	"lilinku-be/internal/logger"
	"lilinku-be/internal/middleware"
)

// NewRouter wires all routes with the shared middleware chain. Provider
// webhooks are mounted unauthenticated: the payment webhook authenticates by
// signature, the shipping webhook is acknowledged noise-tolerant.
func NewRouter(
	cfg *config.Config,
	handlers *Handlers,
	paymentWebhook http.Handler,
	shippingWebhook http.Handler,
) http.Handler {
	mux := http.NewServeMux()

	requireAdmin := middleware.RequireAdmin(cfg)

	// Storefront
	mux.HandleFunc("/checkout", methodOnly(http.MethodPost, handlers.Checkout))
	mux.HandleFunc("/orders/", methodOnly(http.MethodGet, handlers.GetOrder))
	mux.HandleFunc("/destinations", methodOnly(http.MethodGet, handlers.SearchDestinations))
	mux.HandleFunc("/rates", methodOnly(http.MethodPost, handlers.GetRates))

	// Provider webhooks
	mux.Handle("/webhooks/payment", methodHandler(http.MethodPost, paymentWebhook))
	mux.Handle("/webhooks/shipping", methodHandler(http.MethodPost, shippingWebhook))

	// Admin back-office
	mux.HandleFunc("/admin/login", methodOnly(http.MethodPost, handlers.AdminLogin))
	mux.Handle("/admin/orders", requireAdmin(methodHandler(http.MethodGet, http.HandlerFunc(handlers.AdminListOrders))))
	mux.Handle("/admin/orders/", requireAdmin(methodHandler(http.MethodPost, http.HandlerFunc(handlers.AdminOrderAction))))
	mux.Handle("/admin/pickups", requireAdmin(methodHandler(http.MethodPost, http.HandlerFunc(handlers.AdminArrangePickup))))
	mux.Handle("/admin/sweep", requireAdmin(methodHandler(http.MethodPost, http.HandlerFunc(handlers.AdminSweep))))

	var h http.Handler = mux
	h = middleware.RateLimitMiddleware(h)
	h = middleware.AuthMiddleware(cfg.JWTSecret)(h)
	h = logger.LoggingMiddleware(h)
	h = logger.RequestIDMiddleware(h)
	return h
}

func methodOnly(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	}
}

func methodHandler(method string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.ServeHTTP(w, r)
	})
}
