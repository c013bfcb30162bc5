package courtsideapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/courtsidehq/courtside-api/internal/billing"
	"github.com/courtsidehq/courtside-api/internal/cache"
	"github.com/courtsidehq/courtside-api/internal/config"
	"github.com/courtsidehq/courtside-api/internal/lib/jwt"
	"github.com/courtsidehq/courtside-api/internal/migrations"
	"github.com/courtsidehq/courtside-api/internal/rabbitmq"
	authservice "github.com/courtsidehq/courtside-api/internal/services/auth"
	checkoutservice "github.com/courtsidehq/courtside-api/internal/services/checkout"
	entitlementservice "github.com/courtsidehq/courtside-api/internal/services/entitlement"
	ingressservice "github.com/courtsidehq/courtside-api/internal/services/ingress"
	statsservice "github.com/courtsidehq/courtside-api/internal/services/stats"
	syncservice "github.com/courtsidehq/courtside-api/internal/services/sync"
	"github.com/courtsidehq/courtside-api/internal/storage/repository"
)

// App собирает HTTP-сервер и фоновые компоненты резолвера доступа.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	rabbitCon *amqp.Connection
	watcher   *entitlementservice.Watcher
}

// New подключается к хранилищу, кешу и брокеру, собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	rabbitCon, err := rabbitmq.Connect(cfg.RabbitConnectionString, 5, 3*time.Second)
	if err != nil {
		return nil, err
	}
	channel, err := rabbitmq.SetupChannel(rabbitCon, rabbitmq.GetEntitlementQueues())
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)
	authService := authservice.New(db, jwtMaker)

	entitlementService := entitlementservice.New(db, cacheRedis, logger,
		cfg.Entitlement.CacheTTL, cfg.Entitlement.ConfirmAttempts, cfg.Entitlement.ConfirmDelay)
	watcher := entitlementservice.NewWatcher(entitlementService, logger, cfg.Entitlement.FallbackInterval)

	providerClient := billing.NewClient(cfg.BillingProvider.APIURL, cfg.BillingProvider.SecretKey)
	checkoutService := checkoutservice.New(providerClient, db, checkoutservice.Config{
		PriceID:      cfg.BillingProvider.PriceID,
		SuccessURL:   cfg.BillingProvider.SuccessURL,
		CancelURL:    cfg.BillingProvider.CancelURL,
		PortalReturn: cfg.BillingProvider.PortalReturn,
	}, logger)
	ingressService := ingressservice.New(db, channel, logger)

	statsService := statsservice.New(db, cacheRedis, logger)
	syncService := syncservice.New(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db,
		authService, entitlementService, checkoutService, ingressService,
		statsService, syncService, cfg.BillingProvider.WebhookSecret)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:    srv,
		logger:    logger,
		db:        db,
		rabbitCon: rabbitCon,
		watcher:   watcher,
	}, nil
}

// Run запускает HTTP-сервер и потребителя очереди инвалидаций,
// останавливая их по отмене ctx.
func (a *App) Run(ctx context.Context) error {
	go a.watcher.Run(ctx)

	go func() {
		channel, err := a.rabbitCon.Channel()
		if err != nil {
			a.logger.Error("failed to open consumer channel", slog.String("error", err.Error()))
			return
		}
		queues := rabbitmq.GetEntitlementQueues()
		if err := rabbitmq.ConsumerMessage(ctx, channel, queues[0].QueueName, a.watcher.HandleMessage); err != nil {
			a.logger.Error("invalidation consumer stopped", slog.String("error", err.Error()))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.rabbitCon.Close()
		_ = a.db.DB.Close()
		return err
	}
}
