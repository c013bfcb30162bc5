// Package checkout реализует HTTP-обработчик запуска checkout-сессии.
// Аутентификация не требуется: guest checkout поддерживается.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/courtsidehq/courtside-api/internal/http/response"
	"github.com/courtsidehq/courtside-api/internal/lib/sl"
	checkoutservice "github.com/courtsidehq/courtside-api/internal/services/checkout"
)

// Request — структура входных данных для запуска checkout.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Handler обрабатывает запросы на запуск checkout.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Мост к платёжному провайдеру
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс моста checkout.
type Service interface {
	StartCheckout(ctx context.Context, userEmail string) (string, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Начать оформление подписки
// @Description Возвращает одноразовый redirect URL платёжного провайдера. Повторный вызов для того же email переиспользует customer.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Request true "Email покупателя"
// @Success 200 {object} map[string]any "URL checkout-сессии"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Не настроен тариф"
// @Failure 502 {object} response.ErrorResponse "Платёжный провайдер недоступен"
// @Router /checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	url, err := h.service.StartCheckout(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, checkoutservice.ErrConfiguration):
			log.Error("billing is not configured", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("billing is not configured, contact the administrator"))
		default:
			log.Error("failed to start checkout", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("payment provider is unavailable"))
		}
		return
	}

	log.Info("checkout session created")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"url": url,
	}))
}
