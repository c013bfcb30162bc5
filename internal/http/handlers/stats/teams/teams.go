// Package teams реализует HTTP-обработчик получения средних показателей
// команд за сезон. Доступ закрыт premium-гейтом.
package teams

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/courtsidehq/courtside-api/internal/http/response"
	"github.com/courtsidehq/courtside-api/internal/lib/sl"
	"github.com/courtsidehq/courtside-api/internal/models"
)

// Handler обрабатывает запросы статистики команд.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис агрегированной статистики
}

// Service описывает интерфейс сервиса статистики команд.
type Service interface {
	ListTeamAverages(ctx context.Context, season string, limit, offset int) ([]*models.TeamSeasonAverage, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Средние показатели команд
// @Description Возвращает средние очки, подборы и передачи команд за сезон с пагинацией.
// @Tags Stats
// @Produce  json
// @Param season query string true "Сезон, например 2025-26"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]any "Список агрегатов"
// @Failure 400 {object} response.ErrorResponse "Не указан сезон"
// @Failure 403 {object} response.ErrorResponse "Нет premium-доступа"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /stats/teams [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stats.teams"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	season := r.URL.Query().Get("season")
	if season == "" {
		log.Error("season query parameter missing")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("season is required"))
		return
	}
	limit, offset := pagination(r)

	result, err := h.service.ListTeamAverages(r.Context(), season, limit, offset)
	if err != nil {
		log.Error("failed to list team averages", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load team stats"))
		return
	}

	log.Info("team averages listed", slog.Int("count", len(result)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"teams": result,
	}))
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
