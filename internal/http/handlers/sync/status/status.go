// Package status реализует HTTP-обработчик состояния фоновых задач
// синхронизации спортивных данных.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/courtsidehq/courtside-api/internal/http/response"
	"github.com/courtsidehq/courtside-api/internal/lib/sl"
	"github.com/courtsidehq/courtside-api/internal/models"
)

// Handler обрабатывает запросы состояния синхронизации.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис фоновых задач
}

// Service описывает интерфейс сервиса задач синхронизации.
type Service interface {
	LatestJobs(ctx context.Context) ([]*models.SyncJob, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Состояние задач синхронизации
// @Description Возвращает последнюю запись по каждому типу задачи загрузки данных.
// @Tags Sync
// @Produce  json
// @Success 200 {object} map[string]any "Список задач"
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Security BearerAuth
// @Router /sync/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.sync.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	jobs, err := h.service.LatestJobs(r.Context())
	if err != nil {
		log.Error("failed to list sync jobs", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load sync status"))
		return
	}

	log.Info("sync jobs listed", slog.Int("count", len(jobs)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"jobs": jobs,
	}))
}
