package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/courtsidehq/courtside-api/internal/models"
)

// GetSubscriptionByUserUID возвращает текущую запись о подписке пользователя.
// Отсутствие строки не является ошибкой: возвращается (nil, nil), резолвер
// в этом случае уходит на role-fallback.
func (s *Storage) GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.SubscriptionRecord, error) {
	const op = "storage.GetSubscriptionByUserUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, customer_id, price_id, status, current_period_end,
			      created_at, updated_at
			  FROM subscriptions
			  WHERE user_uid = $1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var result models.SubscriptionRecord
	err := row.Scan(&result.ID, &result.UserUID, &result.CustomerID, &result.PriceID,
		&result.Status, &result.CurrentPeriodEnd, &result.CreatedAt, &result.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// UpsertSubscription перезаписывает единственную строку подписки пользователя
// по user_uid и возвращает её ID. Повторный checkout после отмены тем самым
// перезапускает машину статусов на той же строке.
func (s *Storage) UpsertSubscription(ctx context.Context, record models.SubscriptionRecord) (int, error) {
	const op = "storage.UpsertSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid, customer_id, price_id, status, current_period_end)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (user_uid) DO UPDATE
			  SET customer_id = EXCLUDED.customer_id,
			      price_id = EXCLUDED.price_id,
			      status = EXCLUDED.status,
			      current_period_end = EXCLUDED.current_period_end,
			      updated_at = now()
			  RETURNING id`
	var id int
	err := s.DB.QueryRowContext(ctx, query,
		record.UserUID, record.CustomerID, record.PriceID, record.Status,
		record.CurrentPeriodEnd).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// MarkSubscriptionCanceled переводит подписку пользователя в статус canceled.
func (s *Storage) MarkSubscriptionCanceled(ctx context.Context, userUID string) error {
	const op = "storage.MarkSubscriptionCanceled"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1, updated_at = now()
			  WHERE user_uid = $2`
	_, err := s.DB.ExecContext(ctx, query, models.StatusCanceled, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindExpiredActiveSubscriptions возвращает uid пользователей, у которых
// оплаченный период истёк, а провайдер ещё не прислал событие. Используется
// sweeper-ом только для публикации инвалидаций, строки он не изменяет.
func (s *Storage) FindExpiredActiveSubscriptions(ctx context.Context, now time.Time) ([]string, error) {
	const op = "storage.FindExpiredActiveSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid
			  FROM subscriptions
			  WHERE status IN ($1, $2) AND current_period_end <= $3`
	rows, err := s.DB.QueryContext(ctx, query, models.StatusActive, models.StatusTrialing, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, uid)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// AppendBillingEvent добавляет строку в историю биллинг-событий.
func (s *Storage) AppendBillingEvent(ctx context.Context, event models.BillingEvent) (int, error) {
	const op = "storage.AppendBillingEvent"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO billing_events (user_uid, event_type, payload)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var id int
	err := s.DB.QueryRowContext(ctx, query, event.UserUID, event.EventType, event.Payload).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}
