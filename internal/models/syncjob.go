package models

import "time"

// SyncJob — строка статуса задания внешнего пайплайна синхронизации
// спортивных данных. Приложение не управляет пайплайном, только
// показывает состояние его очереди.
type SyncJob struct {
	ID            int        `json:"id"`
	JobType       string     `json:"job_type"` // например player_stats, team_stats, insights
	Status        string     `json:"status"`   // queued, running, done, failed
	RecordsSynced int        `json:"records_synced"`
	ErrorText     *string    `json:"error_text,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}
