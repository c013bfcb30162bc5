package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtsidehq/courtside-api/internal/models"
)

// GetRoleByUserUID возвращает роль пользователя. Если назначений несколько,
// побеждает роль с наибольшими привилегиями (admin > premium > user).
// Отсутствие назначения возвращает пустую строку без ошибки.
func (s *Storage) GetRoleByUserUID(ctx context.Context, userUID string) (string, error) {
	const op = "storage.GetRoleByUserUID"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT role
			  FROM role_assignments
			  WHERE user_uid = $1
			  ORDER BY CASE role
			      WHEN 'admin' THEN 0
			      WHEN 'premium' THEN 1
			      ELSE 2
			  END
			  LIMIT 1`
	var role string
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return role, nil
}

// AssignRole назначает пользователю роль и возвращает ID записи.
func (s *Storage) AssignRole(ctx context.Context, userUID, role string) (int, error) {
	const op = "storage.AssignRole"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if role != models.RoleUser && role != models.RolePremium && role != models.RoleAdmin {
		return 0, fmt.Errorf("%s: unknown role %q", op, role)
	}

	query := `INSERT INTO role_assignments (user_uid, role)
			  VALUES ($1, $2)
			  RETURNING id`
	var id int
	if err := s.DB.QueryRowContext(ctx, query, userUID, role).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}
