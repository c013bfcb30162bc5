// Package health реализует HTTP-обработчик проверки готовности сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/courtsidehq/courtside-api/internal/http/response"
	"github.com/courtsidehq/courtside-api/internal/lib/sl"
)

// Handler обрабатывает запросы проверки здоровья.
type Handler struct {
	log     *slog.Logger
	checker Checker
}

// Checker описывает проверку готовности хранилища.
type Checker interface {
	CheckDatabaseReady(ctx context.Context) error
}

// New создает новый Handler.
func New(log *slog.Logger, checker Checker) *Handler {
	return &Handler{
		log:     log,
		checker: checker,
	}
}

// ServeHTTP godoc
// @Summary Проверка готовности
// @Description Возвращает 200, если база данных доступна.
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response "Сервис готов"
// @Failure 503 {object} response.ErrorResponse "База данных недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if err := h.checker.CheckDatabaseReady(r.Context()); err != nil {
		h.log.Error("database is not ready", slog.String("op", op), sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database is not ready"))
		return
	}
	render.JSON(w, r, response.Response{Status: response.StatusOK})
}
