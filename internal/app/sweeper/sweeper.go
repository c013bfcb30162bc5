// Package sweeper содержит сборку фонового приложения обхода истёкших подписок.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/courtsidehq/courtside-api/internal/config"
	"github.com/courtsidehq/courtside-api/internal/rabbitmq"
	sweeperservice "github.com/courtsidehq/courtside-api/internal/services/sweeper"
	"github.com/courtsidehq/courtside-api/internal/storage/repository"
)

// App представляет приложение обходчика.
type App struct {
	sweeperService *sweeperservice.Service
	conn           *amqp.Connection
	ch             *amqp.Channel
	interval       time.Duration
	logger         *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		err := db.CheckDatabaseReady(ctx)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения обходчика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitConnectionString, 5, 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetEntitlementQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(ctx, db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	sweeperService := sweeperservice.New(db, logger)

	return &App{
		sweeperService: sweeperService,
		conn:           conn,
		ch:             ch,
		interval:       cfg.Entitlement.SweepInterval,
		logger:         logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает обходчик.
func (a *App) Run(ctx context.Context) error {
	go a.sweeperService.Run(ctx, a.ch, a.interval)

	<-ctx.Done()

	a.logger.Info("shutting down sweeper service")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
