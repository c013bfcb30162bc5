// Package resolve реализует HTTP-обработчик получения текущего решения о
// доступе пользователя. Резолвер не возвращает ошибок: при проблемах с
// хранилищем клиент получает безопасный free tier, не 5xx.
package resolve

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/courtsidehq/courtside-api/internal/http/middlewarectx"
	"github.com/courtsidehq/courtside-api/internal/http/response"
	"github.com/courtsidehq/courtside-api/internal/models"
)

// Handler обрабатывает запросы на получение решения о доступе.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Резолвер решений о доступе
}

// Service описывает интерфейс резолвера.
type Service interface {
	Resolve(ctx context.Context, userUID string) models.EntitlementDecision
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Текущее решение о доступе
// @Description Возвращает is_premium и is_admin для текущего пользователя.
// @Tags Entitlement
// @Produce  json
// @Success 200 {object} map[string]any "Решение о доступе"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Security BearerAuth
// @Router /entitlement [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.resolve"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	decision := h.service.Resolve(r.Context(), userUID)

	log.Info("entitlement resolved",
		slog.Bool("is_premium", decision.IsPremium),
		slog.Bool("is_admin", decision.IsAdmin))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"entitlement": decision,
	}))
}
