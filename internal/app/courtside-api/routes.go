// Package courtsideapi предоставляет маршруты для основного приложения.
package courtsideapi

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/courtsidehq/courtside-api/internal/http/handlers/auth/login"
	"github.com/courtsidehq/courtside-api/internal/http/handlers/auth/register"
	checkouthandler "github.com/courtsidehq/courtside-api/internal/http/handlers/billing/checkout"
	"github.com/courtsidehq/courtside-api/internal/http/handlers/billing/portal"
	"github.com/courtsidehq/courtside-api/internal/http/handlers/billing/webhook"
	"github.com/courtsidehq/courtside-api/internal/http/handlers/entitlement/refresh"
	"github.com/courtsidehq/courtside-api/internal/http/handlers/entitlement/resolve"
	"github.com/courtsidehq/courtside-api/internal/http/handlers/health"
	"github.com/courtsidehq/courtside-api/internal/http/handlers/stats/players"
	"github.com/courtsidehq/courtside-api/internal/http/handlers/stats/teams"
	syncstatus "github.com/courtsidehq/courtside-api/internal/http/handlers/sync/status"
	"github.com/courtsidehq/courtside-api/internal/http/middlewarectx"
	authservice "github.com/courtsidehq/courtside-api/internal/services/auth"
	checkoutservice "github.com/courtsidehq/courtside-api/internal/services/checkout"
	entitlementservice "github.com/courtsidehq/courtside-api/internal/services/entitlement"
	ingressservice "github.com/courtsidehq/courtside-api/internal/services/ingress"
	statsservice "github.com/courtsidehq/courtside-api/internal/services/stats"
	syncservice "github.com/courtsidehq/courtside-api/internal/services/sync"
	"github.com/courtsidehq/courtside-api/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *repository.Storage,
	authService *authservice.Service,
	entitlementService *entitlementservice.Service,
	checkoutService *checkoutservice.Service,
	ingressService *ingressservice.Service,
	statsService *statsservice.Service,
	syncService *syncservice.Service,
	webhookSecret string,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/health", health.New(logger, db).ServeHTTP)
		// Guest checkout: аутентификация не требуется
		r.Post("/billing/checkout", checkouthandler.New(logger, checkoutService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/entitlement", resolve.New(logger, entitlementService).ServeHTTP)
			r.Post("/entitlement/refresh", refresh.New(logger, entitlementService).ServeHTTP)
			r.Post("/billing/portal", portal.New(logger, checkoutService).ServeHTTP)
			r.Get("/sync/status", syncstatus.New(logger, syncService).ServeHTTP)

			// Premium-витрина статистики
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.PremiumGateMiddleware(logger, entitlementService))
				r.Get("/stats/players", players.New(logger, statsService).ServeHTTP)
				r.Get("/stats/teams", teams.New(logger, statsService).ServeHTTP)
			})
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/billing/webhook", webhook.New(logger, ingressService, webhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
