// Package entitlement содержит ядро приложения: резолвер решения о доступе.
//
// Решение выводится из записи о подписке и назначенной роли. При наличии
// записи о подписке premium-доступ определяет только она; роль учитывается
// как fallback для пользователей без подписки и всегда — для признака admin.
// Любая ошибка хранилища превращается в безопасный ответ (free tier либо
// last-known-good снимок), наружу ошибки резолвера не выходят.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtsidehq/courtside-api/internal/lib/sl"
	"github.com/courtsidehq/courtside-api/internal/models"
)

// Ключи кеша. Снимок decision живёт ограниченное время и инвалидируется,
// lastgood не истекает и служит ответом при недоступности хранилища.
const (
	decisionKeyPrefix = "entitlement:decision:"
	lastGoodKeyPrefix = "entitlement:lastgood:"
)

// ActivationStatus — исход ограниченного опроса после возврата с checkout.
type ActivationStatus string

const (
	// ActivationConfirmed — webhook дошёл, premium-доступ подтверждён.
	ActivationConfirmed ActivationStatus = "confirmed"
	// ActivationPending — бюджет опроса исчерпан, активация ещё в пути.
	// Это не ошибка и не успех: клиент показывает состояние ожидания.
	ActivationPending ActivationStatus = "pending"
	// ActivationCanceled — наблюдатель ушёл, результат отброшен.
	ActivationCanceled ActivationStatus = "canceled"
)

// Repository определяет методы чтения строк, из которых выводится решение.
// Обе таблицы мутирует только ingress биллинг-событий, резолвер read-only.
type Repository interface {
	// GetSubscriptionByUserUID возвращает запись о подписке или (nil, nil), если её нет.
	GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.SubscriptionRecord, error)
	// GetRoleByUserUID возвращает роль пользователя или пустую строку, если назначения нет.
	GetRoleByUserUID(ctx context.Context, userUID string) (string, error)
}

// Cache описывает методы для кэширования решений.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
	InvalidatePrefix(prefix string) error
}

// Service реализует резолвер решений о доступе.
type Service struct {
	repo            Repository
	cache           Cache
	log             *slog.Logger
	cacheTTL        time.Duration
	confirmAttempts int
	confirmDelay    time.Duration
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger, cacheTTL time.Duration, confirmAttempts int, confirmDelay time.Duration) *Service {
	return &Service{
		repo:            repo,
		cache:           cache,
		log:             log,
		cacheTTL:        cacheTTL,
		confirmAttempts: confirmAttempts,
		confirmDelay:    confirmDelay,
	}
}

// Resolve возвращает текущее решение о доступе пользователя.
//
// Ошибок не возвращает: при недоступности хранилища отдаёт last-known-good
// снимок, а если его нет — free tier. Пустой userUID (нет сессии) — всегда
// free tier без обращения к хранилищу.
func (s *Service) Resolve(ctx context.Context, userUID string) models.EntitlementDecision {
	const op = "entitlement.Resolve"
	if userUID == "" {
		return models.FreeTier()
	}
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))

	var cached models.EntitlementDecision
	found, err := s.cache.Get(decisionKeyPrefix+userUID, &cached)
	if err != nil {
		log.Warn("failed to read decision cache", sl.Err(err))
	}
	if found {
		return cached
	}

	sub, err := s.repo.GetSubscriptionByUserUID(ctx, userUID)
	if err != nil {
		log.Error("subscription fetch failed, falling back", sl.Err(err))
		return s.lastKnownGood(userUID)
	}

	role, err := s.repo.GetRoleByUserUID(ctx, userUID)
	if err != nil {
		// Привилегии по ошибке не выдаются: роль считается отсутствующей.
		log.Error("role fetch failed, treating role as absent", sl.Err(err))
		role = ""
	}

	decision := models.EntitlementDecision{
		IsAdmin: role == models.RoleAdmin,
	}
	if sub != nil {
		decision.IsPremium = sub.IsPaidActive(time.Now())
	} else {
		decision.IsPremium = models.IsElevated(role)
	}

	if err := s.cache.Set(decisionKeyPrefix+userUID, decision, s.cacheTTL); err != nil {
		log.Warn("failed to cache decision", sl.Err(err))
	}
	if err := s.cache.Set(lastGoodKeyPrefix+userUID, decision, 0); err != nil {
		log.Warn("failed to store last-known-good decision", sl.Err(err))
	}
	return decision
}

// Invalidate сбрасывает кешированное решение пользователя: следующий
// Resolve прочитает состояние из хранилища.
func (s *Service) Invalidate(userUID string) error {
	const op = "entitlement.Invalidate"
	if userUID == "" {
		return nil
	}
	if err := s.cache.Invalidate(decisionKeyPrefix + userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// InvalidateAll сбрасывает все кешированные решения. Используется фоновым
// тиком как страховка от пропущенных push-инвалидаций; lastgood-снимки
// при этом сохраняются.
func (s *Service) InvalidateAll() error {
	const op = "entitlement.InvalidateAll"
	if err := s.cache.InvalidatePrefix(decisionKeyPrefix); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ConfirmActivation выполняет ограниченный опрос после возврата с checkout:
// webhook провайдера может прийти позже, чем пользователь вернулся в
// приложение. Каждая попытка инвалидирует кеш и резолвит заново.
func (s *Service) ConfirmActivation(ctx context.Context, userUID string) ActivationStatus {
	const op = "entitlement.ConfirmActivation"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))

	for attempt := range s.confirmAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ActivationCanceled
			case <-time.After(s.confirmDelay):
			}
		}
		if err := s.Invalidate(userUID); err != nil {
			log.Warn("failed to invalidate before poll", sl.Err(err))
		}
		if s.Resolve(ctx, userUID).IsPremium {
			log.Info("activation confirmed", slog.Int("attempt", attempt+1))
			return ActivationConfirmed
		}
		select {
		case <-ctx.Done():
			return ActivationCanceled
		default:
		}
	}

	log.Info("activation still pending after poll budget",
		slog.Int("attempts", s.confirmAttempts))
	return ActivationPending
}

func (s *Service) lastKnownGood(userUID string) models.EntitlementDecision {
	var lastGood models.EntitlementDecision
	found, err := s.cache.Get(lastGoodKeyPrefix+userUID, &lastGood)
	if err != nil || !found {
		return models.FreeTier()
	}
	return lastGood
}
