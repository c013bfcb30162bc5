// Package refresh реализует HTTP-обработчик принудительного обновления
// решения о доступе после возврата с checkout. Webhook провайдера может
// опаздывать, поэтому обработчик выполняет ограниченный опрос и честно
// возвращает pending, если активация ещё не долетела.
package refresh

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/courtsidehq/courtside-api/internal/http/middlewarectx"
	"github.com/courtsidehq/courtside-api/internal/http/response"
	"github.com/courtsidehq/courtside-api/internal/models"
	"github.com/courtsidehq/courtside-api/internal/services/entitlement"
)

// Handler обрабатывает запросы на принудительное обновление решения.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Резолвер решений о доступе
}

// Service описывает используемые операции резолвера.
type Service interface {
	ConfirmActivation(ctx context.Context, userUID string) entitlement.ActivationStatus
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
// @Summary Обновить решение о доступе
// @Description Инвалидирует кеш и опрашивает состояние подписки ограниченное число раз. Возвращает confirmed, pending или canceled.
// @Tags Entitlement
// @Produce  json
// @Success 200 {object} map[string]any "Статус активации и решение"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Security BearerAuth
// @Router /entitlement/refresh [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.refresh"

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

	status := h.service.ConfirmActivation(r.Context(), userUID)
	if status == entitlement.ActivationCanceled {
		// Клиент ушёл, результат никому не нужен.
		log.Info("activation poll canceled by client")
		return
	}

	decision := h.service.Resolve(r.Context(), userUID)

	log.Info("entitlement refreshed", slog.String("activation", string(status)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"activation":  string(status),
		"entitlement": decision,
	}))
}
