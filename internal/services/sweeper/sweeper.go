// Package sweeper находит подписки, оплаченный период которых истёк без
// события провайдера, и публикует для них инвалидации решений. Строки
// подписок sweeper не изменяет: единственным писателем остаётся ingress,
// а протухшая запись и так резолвится как неоплаченная.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/courtsidehq/courtside-api/internal/lib/sl"
	"github.com/courtsidehq/courtside-api/internal/rabbitmq"
)

// SubscriptionRepository определяет поиск истёкших подписок.
type SubscriptionRepository interface {
	FindExpiredActiveSubscriptions(ctx context.Context, now time.Time) ([]string, error)
}

// Service реализует периодический обход истёкших подписок.
type Service struct {
	repo SubscriptionRepository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo SubscriptionRepository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// Run запускает обход с заданным интервалом до отмены ctx.
func (s *Service) Run(ctx context.Context, channel *amqp.Channel, interval time.Duration) {
	s.sweep(ctx, channel)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx, channel)
		}
	}
}

func (s *Service) sweep(ctx context.Context, channel *amqp.Channel) {
	const op = "sweeper.sweep"
	log := s.log.With(slog.String("op", op))

	log.Info("looking for subscriptions expired without a provider event")
	uids, err := s.repo.FindExpiredActiveSubscriptions(ctx, time.Now())
	if err != nil {
		log.Error("failed to find expired subscriptions", sl.Err(err))
		return
	}
	if len(uids) == 0 {
		log.Info("no expired subscriptions found")
		return
	}
	log.Info("found expired subscriptions", slog.Int("count", len(uids)))
	for _, uid := range uids {
		err = rabbitmq.PublishMessage(channel, rabbitmq.ExchangeName, "changed",
			rabbitmq.ChangeNotification{UserUID: uid, Reason: "period_expired"})
		if err != nil {
			log.Error("failed to publish invalidation", sl.Err(err))
		}
	}
}
