package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/courtsidehq/courtside-api/internal/models"
)

// ListLatestSyncJobs возвращает последнее задание пайплайна синхронизации
// по каждому типу задания.
func (s *Storage) ListLatestSyncJobs(ctx context.Context) ([]*models.SyncJob, error) {
	const op = "storage.ListLatestSyncJobs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT DISTINCT ON (job_type)
			      id, job_type, status, records_synced, error_text, started_at, finished_at
			  FROM sync_jobs
			  ORDER BY job_type, started_at DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SyncJob
	for rows.Next() {
		var job models.SyncJob
		var errorText sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(&job.ID, &job.JobType, &job.Status, &job.RecordsSynced,
			&errorText, &job.StartedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if errorText.Valid {
			job.ErrorText = &errorText.String
		}
		if finishedAt.Valid {
			job.FinishedAt = &finishedAt.Time
		}
		result = append(result, &job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
