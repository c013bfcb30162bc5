package models

import "time"

// PlayerGameStat — строка статистики игрока за один матч. Таблицу наполняет
// внешний пайплайн синхронизации, приложение её только читает.
type PlayerGameStat struct {
	ID         int
	PlayerName string
	TeamName   string
	Season     string
	Points     float64
	Rebounds   float64
	Assists    float64
	PlayedAt   time.Time
}

// PlayerSeasonAverage — средние показатели игрока за сезон.
type PlayerSeasonAverage struct {
	PlayerName  string  `json:"player_name"`
	TeamName    string  `json:"team_name"`
	Season      string  `json:"season"`
	Games       int     `json:"games"`
	AvgPoints   float64 `json:"avg_points"`
	AvgRebounds float64 `json:"avg_rebounds"`
	AvgAssists  float64 `json:"avg_assists"`
}

// TeamSeasonAverage — средние показатели команды за сезон.
type TeamSeasonAverage struct {
	TeamName    string  `json:"team_name"`
	Season      string  `json:"season"`
	Games       int     `json:"games"`
	AvgPoints   float64 `json:"avg_points"`
	AvgRebounds float64 `json:"avg_rebounds"`
	AvgAssists  float64 `json:"avg_assists"`
}
