package repository

import (
	"context"
	"fmt"

	"github.com/courtsidehq/courtside-api/internal/models"
)

// ListPlayerSeasonAverages возвращает средние показатели игроков за сезон с
// пагинацией. Строки player_game_stats пишет внешний пайплайн, здесь они
// только агрегируются.
func (s *Storage) ListPlayerSeasonAverages(ctx context.Context, season string, limit, offset int) ([]*models.PlayerSeasonAverage, error) {
	const op = "storage.ListPlayerSeasonAverages"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT player_name, team_name, season, COUNT(*) AS games,
			      AVG(points), AVG(rebounds), AVG(assists)
			  FROM player_game_stats
			  WHERE season = $1
			  GROUP BY player_name, team_name, season
			  ORDER BY AVG(points) DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, season, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PlayerSeasonAverage
	for rows.Next() {
		var item models.PlayerSeasonAverage
		if err := rows.Scan(&item.PlayerName, &item.TeamName, &item.Season, &item.Games,
			&item.AvgPoints, &item.AvgRebounds, &item.AvgAssists); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListTeamSeasonAverages возвращает средние показатели команд за сезон.
func (s *Storage) ListTeamSeasonAverages(ctx context.Context, season string, limit, offset int) ([]*models.TeamSeasonAverage, error) {
	const op = "storage.ListTeamSeasonAverages"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT team_name, season, COUNT(*) AS games,
			      AVG(points), AVG(rebounds), AVG(assists)
			  FROM player_game_stats
			  WHERE season = $1
			  GROUP BY team_name, season
			  ORDER BY AVG(points) DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, season, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.TeamSeasonAverage
	for rows.Next() {
		var item models.TeamSeasonAverage
		if err := rows.Scan(&item.TeamName, &item.Season, &item.Games,
			&item.AvgPoints, &item.AvgRebounds, &item.AvgAssists); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
