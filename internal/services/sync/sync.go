// Package sync отдаёт состояние очереди внешнего пайплайна синхронизации
// спортивных данных. Сам пайплайн приложением не управляется.
package sync

import (
	"context"
	"log/slog"

	"github.com/courtsidehq/courtside-api/internal/models"
)

// Repository определяет чтение статусов заданий пайплайна.
type Repository interface {
	ListLatestSyncJobs(ctx context.Context) ([]*models.SyncJob, error)
}

// Service реализует чтение статусов заданий.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// LatestJobs возвращает последнее задание каждого типа.
func (s *Service) LatestJobs(ctx context.Context) ([]*models.SyncJob, error) {
	return s.repo.ListLatestSyncJobs(ctx)
}
