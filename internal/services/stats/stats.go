// Package stats отдаёт агрегированную статистику игроков и команд.
// Агрегаты считает база (GROUP BY + AVG), сервис добавляет кеширование:
// строки наполняет внешний пайплайн и меняются они редко.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtsidehq/courtside-api/internal/models"
)

// Repository определяет методы чтения агрегатов статистики.
type Repository interface {
	ListPlayerSeasonAverages(ctx context.Context, season string, limit, offset int) ([]*models.PlayerSeasonAverage, error)
	ListTeamSeasonAverages(ctx context.Context, season string, limit, offset int) ([]*models.TeamSeasonAverage, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// Service реализует чтение статистики с кешированием.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// ListPlayerAverages возвращает средние показатели игроков за сезон.
func (s *Service) ListPlayerAverages(ctx context.Context, season string, limit, offset int) ([]*models.PlayerSeasonAverage, error) {
	cacheKey := fmt.Sprintf("stats:players:%s:%d:%d", season, limit, offset)
	var cached []*models.PlayerSeasonAverage
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read stats cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found {
		return cached, nil
	}

	result, err := s.repo.ListPlayerSeasonAverages(ctx, season, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, result, 10*time.Minute); err != nil {
		s.log.Warn("failed to cache stats", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return result, nil
}

// ListTeamAverages возвращает средние показатели команд за сезон.
func (s *Service) ListTeamAverages(ctx context.Context, season string, limit, offset int) ([]*models.TeamSeasonAverage, error) {
	cacheKey := fmt.Sprintf("stats:teams:%s:%d:%d", season, limit, offset)
	var cached []*models.TeamSeasonAverage
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read stats cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found {
		return cached, nil
	}

	result, err := s.repo.ListTeamSeasonAverages(ctx, season, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, result, 10*time.Minute); err != nil {
		s.log.Warn("failed to cache stats", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return result, nil
}
