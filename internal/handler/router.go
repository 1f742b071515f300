package handler

import (
	"net/http"
	"time"

	"github.com/vendalivre/storefront-api/internal/domain"
	"github.com/vendalivre/storefront-api/internal/infra/observability"
	"github.com/vendalivre/storefront-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router needs.
type Services struct {
	Shipping *service.ShippingService
	Profiles *service.ProfileService
	Catalog  *service.CatalogService
	Checkout *service.CheckoutService
	Payments *service.PaymentService
	Auth     *service.AuthService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Profiles))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Shipping quotes (anonymous; admins get the
		// free-shipping override when authenticated)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(OptionalAuthMiddleware(svcs.Auth))
			r.Post("/shipping/quote", quoteHandler(svcs.Shipping, logger))
		})

		// =============================================
		// Catalog (public)
		// =============================================
		r.Get("/products", listProductsHandler(svcs.Catalog, logger))
		r.Get("/products/{productId}", getProductHandler(svcs.Catalog, logger))
		r.Get("/plans", listPlansHandler(svcs.Catalog, logger))
		r.Get("/plans/{planId}", getPlanHandler(svcs.Catalog, logger))

		// =============================================
		// Shipping metrics snapshot
		// =============================================
		r.Get("/metrics/shipping", shippingMetricsHandler(metrics))

		// =============================================
		// Authentication
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(svcs.Auth, logger))
			r.Post("/login", authLoginHandler(svcs.Auth, logger))
			r.Post("/refresh", authRefreshHandler(svcs.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(svcs.Auth, logger))
				r.Post("/logout", authLogoutHandler(svcs.Auth, logger))
			})
		})

		// =============================================
		// Checkout, orders & payments (authenticated)
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth, logger))
			r.Post("/checkout", checkoutHandler(svcs.Checkout, logger))
			r.Get("/orders/{orderId}", getOrderHandler(svcs.Checkout, logger))
			r.Get("/customers/{customerId}/orders", listOrdersHandler(svcs.Checkout, logger))
			r.Post("/payments/pix", createPixChargeHandler(svcs.Payments, logger))
			r.Get("/payments/pix/{chargeId}", getPixChargeHandler(svcs.Payments, logger))
		})

		// =============================================
		// Gateway webhook (HMAC-signed, no JWT)
		// =============================================
		r.Post("/webhooks/payments", paymentWebhookHandler(svcs.Payments, logger))

		// =============================================
		// Admin surface
		// =============================================
		r.Route("/admin", func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svcs.Auth, logger))
			r.Use(RequireAdmin(logger))
			r.Get("/shipping-profiles", listProfilesHandler(svcs.Profiles, logger))
			r.Post("/shipping-profiles", createProfileHandler(svcs.Profiles, logger))
			r.Post("/shipping-profiles/{profileId}/toggle", toggleProfileHandler(svcs.Profiles, logger))
		})
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(profiles *service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "storefront-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if profiles != nil {
			start := time.Now()
			_, err := profiles.ListProfiles(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func shippingMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, metrics.GetShippingSnapshot())
	}
}
