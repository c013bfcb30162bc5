// Package portal реализует HTTP-обработчик открытия портала управления
// подпиской у платёжного провайдера.
package portal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/courtsidehq/courtside-api/internal/http/middlewarectx"
	"github.com/courtsidehq/courtside-api/internal/http/response"
	"github.com/courtsidehq/courtside-api/internal/lib/sl"
	checkoutservice "github.com/courtsidehq/courtside-api/internal/services/checkout"
)

// Handler обрабатывает запросы на открытие портала управления подпиской.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Мост к платёжному провайдеру
}

// Service описывает интерфейс моста портала.
type Service interface {
	StartPortalSession(ctx context.Context, userUID string) (string, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Портал управления подпиской
// @Description Возвращает redirect URL портала платёжного провайдера для текущего пользователя.
// @Tags Billing
// @Produce  json
// @Success 200 {object} map[string]any "URL портала"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "У пользователя ещё не было checkout"
// @Failure 502 {object} response.ErrorResponse "Платёжный провайдер недоступен"
// @Security BearerAuth
// @Router /billing/portal [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.portal"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, _ := r.Context().Value(middlewarectx.UserUID).(string)

	url, err := h.service.StartPortalSession(r.Context(), userUID)
	if err != nil {
		switch {
		case errors.Is(err, checkoutservice.ErrUnauthenticated):
			log.Error("portal requested without session")
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("unauthorized"))
		case errors.Is(err, checkoutservice.ErrNoBillingCustomer):
			log.Error("portal requested without billing customer", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("no subscription to manage"))
		default:
			log.Error("failed to start portal session", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("payment provider is unavailable"))
		}
		return
	}

	log.Info("portal session created")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"url": url,
	}))
}
