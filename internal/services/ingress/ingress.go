// Package ingress переводит webhook-события платёжного провайдера в
// перезапись записи о подписке. Это единственный писатель таблиц
// subscriptions и billing_events: резолвер и HTTP-слой их только читают,
// поэтому блокировки не нужны — согласованность обеспечивает инвалидация.
package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/courtsidehq/courtside-api/internal/lib/sl"
	"github.com/courtsidehq/courtside-api/internal/models"
	"github.com/courtsidehq/courtside-api/internal/rabbitmq"
)

// Обрабатываемые типы событий провайдера.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Payload — тело webhook-события провайдера.
type Payload struct {
	Event  string `json:"event"`
	Object struct {
		ID               string            `json:"id"`
		CustomerID       string            `json:"customer"`
		PriceID          string            `json:"price"`
		Status           string            `json:"status"`
		CurrentPeriodEnd string            `json:"current_period_end"` // RFC3339
		Metadata         map[string]string `json:"metadata"`           // user_uid и др.
	} `json:"object"`
}

// Repository определяет запись строк подписки и истории событий.
type Repository interface {
	UpsertSubscription(ctx context.Context, record models.SubscriptionRecord) (int, error)
	MarkSubscriptionCanceled(ctx context.Context, userUID string) error
	AppendBillingEvent(ctx context.Context, event models.BillingEvent) (int, error)
	SetBillingCustomerID(ctx context.Context, userUID, customerID string) error
}

// Service обрабатывает события провайдера.
type Service struct {
	repo    Repository
	channel *amqp.Channel
	log     *slog.Logger
}

// New создает новый экземпляр Service. channel может быть nil — тогда
// push-инвалидации не публикуются и остаётся только фоновый тик.
func New(repo Repository, channel *amqp.Channel, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		channel: channel,
		log:     log,
	}
}

// ProcessWebhookEvent применяет событие подписки: перезаписывает строку
// пользователя, дописывает историю и публикует инвалидацию решения.
// Неизвестные события и события без user_uid игнорируются с записью в лог.
func (s *Service) ProcessWebhookEvent(ctx context.Context, rawBody []byte, payload *Payload) error {
	const op = "ingress.ProcessWebhookEvent"
	log := s.log.With(slog.String("op", op), slog.String("event", payload.Event))

	userUID := payload.Object.Metadata["user_uid"]
	if userUID == "" {
		log.Warn("event without user_uid metadata ignored",
			slog.String("customer_id", payload.Object.CustomerID))
		return nil
	}
	log = log.With(slog.String("user_uid", userUID))

	switch payload.Event {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		periodEnd := parsePeriodEnd(payload.Object.CurrentPeriodEnd, log)
		record := models.SubscriptionRecord{
			UserUID:          userUID,
			CustomerID:       payload.Object.CustomerID,
			PriceID:          payload.Object.PriceID,
			Status:           normalizeStatus(payload.Object.Status),
			CurrentPeriodEnd: periodEnd,
		}
		if _, err := s.repo.UpsertSubscription(ctx, record); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.repo.SetBillingCustomerID(ctx, userUID, payload.Object.CustomerID); err != nil {
			log.Warn("failed to save billing customer id", sl.Err(err))
		}
	case EventSubscriptionDeleted:
		if err := s.repo.MarkSubscriptionCanceled(ctx, userUID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	default:
		log.Info("ignored webhook event")
		return nil
	}

	if _, err := s.repo.AppendBillingEvent(ctx, models.BillingEvent{
		UserUID:   userUID,
		EventType: payload.Event,
		Payload:   rawBody,
	}); err != nil {
		// История вторична: строка подписки уже обновлена.
		log.Warn("failed to append billing event history", sl.Err(err))
	}

	s.publishInvalidation(userUID, payload.Event, log)
	return nil
}

func (s *Service) publishInvalidation(userUID, reason string, log *slog.Logger) {
	if s.channel == nil {
		return
	}
	err := rabbitmq.PublishMessage(s.channel, rabbitmq.ExchangeName, "changed",
		rabbitmq.ChangeNotification{UserUID: userUID, Reason: reason})
	if err != nil {
		// Фоновый тик резолвера доберёт инвалидацию позже.
		log.Warn("failed to publish invalidation", sl.Err(err))
	}
}

// normalizeStatus приводит статус провайдера к известным значениям.
// Неизвестный статус трактуется как past_due: строка остаётся, но
// premium-доступ не выдаётся.
func normalizeStatus(status string) string {
	switch status {
	case models.StatusActive, models.StatusTrialing, models.StatusPastDue, models.StatusCanceled:
		return status
	default:
		return models.StatusPastDue
	}
}

// parsePeriodEnd разбирает отметку конца периода. Нечитаемое значение
// превращается в нулевое время: такая запись резолвится как неоплаченная,
// но обработка события не падает.
func parsePeriodEnd(value string, log *slog.Logger) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		log.Warn("unparseable current_period_end, storing zero time", sl.Err(err))
		return time.Time{}
	}
	return t
}

// ParsePayload разбирает тело webhook. Вынесено отдельно, чтобы HTTP-слой
// мог проверить подпись на сыром теле до разбора.
func ParsePayload(body []byte) (*Payload, error) {
	const op = "ingress.ParsePayload"
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &payload, nil
}
