package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtsidehq/courtside-api/internal/models"
)

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (email, username, password_hash)
			  VALUES ($1, $2, $3)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, billing_customer_id, created_at
			  FROM users
			  WHERE username = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, username), op)
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, billing_customer_id, created_at
			  FROM users
			  WHERE uid = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, userUID), op)
}

// GetUserByEmail возвращает пользователя по email или (nil, nil), если его нет.
// Используется ingress-ом, когда провайдер не прислал user_uid в metadata.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, billing_customer_id, created_at
			  FROM users
			  WHERE email = $1`
	u, err := s.scanUser(s.DB.QueryRowContext(ctx, query, email), op)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// SetBillingCustomerID сохраняет идентификатор customer платёжного провайдера.
func (s *Storage) SetBillingCustomerID(ctx context.Context, userUID, customerID string) error {
	const op = "storage.SetBillingCustomerID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET billing_customer_id = $1
			  WHERE uid = $2`
	_, err := s.DB.ExecContext(ctx, query, customerID, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) scanUser(row *sql.Row, op string) (*models.User, error) {
	u := &models.User{}
	var customerID sql.NullString
	if err := row.Scan(&u.UID, &u.Email, &u.Username, &u.PasswordHash,
		&customerID, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if customerID.Valid {
		u.BillingCustomerID = &customerID.String
	}
	return u, nil
}
