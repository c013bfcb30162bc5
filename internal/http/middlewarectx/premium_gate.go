package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/courtsidehq/courtside-api/internal/http/response"
	"github.com/courtsidehq/courtside-api/internal/models"
)

// EntitlementResolver определяет интерфейс резолвера решений о доступе.
type EntitlementResolver interface {
	Resolve(ctx context.Context, userUID string) models.EntitlementDecision
}

// PremiumGateMiddleware пропускает дальше только пользователей с premium-доступом.
// Резолвер fail-closed: при недоступности хранилища без last-known-good снимка
// пользователь получает 403, а не ошибку и не доступ.
func PremiumGateMiddleware(log *slog.Logger, resolver EntitlementResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userUID, ok := r.Context().Value(UserUID).(string)
			if !ok || userUID == "" {
				log.Error("user identification missing")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			decision := resolver.Resolve(r.Context(), userUID)
			if !decision.IsPremium {
				w.WriteHeader(http.StatusForbidden)
				render.JSON(w, r, response.Error("premium subscription required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
