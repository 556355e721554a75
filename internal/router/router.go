package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"farmgate-api/internal/handler"
	"farmgate-api/internal/middleware"
	"farmgate-api/internal/service"
)

// Config holds the configuration for creating a router.
type Config struct {
	Logger *zap.Logger
	Audit  service.AuditRecorder

	HealthHandler   *handler.HealthHandler
	AuthHandler     *handler.AuthHandler
	InquiryHandler  *handler.InquiryHandler
	ProductHandler  *handler.ProductHandler
	AuditHandler    *handler.AuditHandler
	MetricsHandler  *handler.MetricsHandler
	SecurityHandler *handler.SecurityHandler

	AuthMiddleware func(http.Handler) http.Handler
	InquiryLimiter *middleware.RateLimiter
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.NewRecovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.NewLogging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	r.Get("/api/status", cfg.HealthHandler.Status)
	r.Post("/api/security/csp-report", cfg.SecurityHandler.Report)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", cfg.HealthHandler.Health)
		r.Get("/ready", cfg.HealthHandler.Ready)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/token", cfg.AuthHandler.GenerateToken)
			r.Post("/revoke", cfg.AuthHandler.RevokeToken)
			r.Post("/refresh", cfg.AuthHandler.RefreshToken)
		})

		manager := []func(http.Handler) http.Handler{cfg.AuthMiddleware, middleware.RequireManager(cfg.Audit)}
		admin := []func(http.Handler) http.Handler{cfg.AuthMiddleware, middleware.RequireAdmin(cfg.Audit)}

		r.Route("/inquiries", func(r chi.Router) {
			// Anyone can open an inquiry; submissions are rate limited per IP.
			r.With(cfg.InquiryLimiter.Handler).Post("/", cfg.InquiryHandler.Create)

			r.With(manager...).Get("/", cfg.InquiryHandler.List)
			r.With(manager...).Get("/stats", cfg.InquiryHandler.Stats)
			r.With(manager...).Get("/{id}", cfg.InquiryHandler.Get)
			r.With(manager...).Patch("/{id}/status", cfg.InquiryHandler.UpdateStatus)
			r.With(manager...).Post("/{id}/read", cfg.InquiryHandler.MarkRead)
			r.With(manager...).Post("/{id}/reply", cfg.InquiryHandler.MarkReplied)
			r.With(admin...).Delete("/{id}", cfg.InquiryHandler.Delete)
		})

		// Public catalog reads served by the cached reader; admin writes
		// invalidate the products tag.
		r.Route("/products", func(r chi.Router) {
			r.Get("/", cfg.ProductHandler.List)
			r.Get("/search", cfg.ProductHandler.Search)
			r.Get("/{id}", cfg.ProductHandler.Get)

			r.With(admin...).Post("/", cfg.ProductHandler.Create)
			r.With(admin...).Put("/{id}", cfg.ProductHandler.Update)
			r.With(admin...).Delete("/{id}", cfg.ProductHandler.Delete)
		})
		r.Get("/locations", cfg.ProductHandler.Locations)

		r.With(admin...).Get("/audit-logs", cfg.AuditHandler.List)
		r.With(admin...).Get("/metrics", cfg.MetricsHandler.GetStats)
	})

	return r
}
