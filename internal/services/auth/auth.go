// Package auth содержит логику регистрации, входа и проверки сессий.
// Сессия — это JWT с username, ролью и uid; дальше по стеку идентичность
// передаётся явно параметрами, глобального "текущего пользователя" нет.
package auth

import (
	"context"
	"errors"

	"github.com/courtsidehq/courtside-api/internal/lib/jwt"
	"github.com/courtsidehq/courtside-api/internal/lib/password"
	"github.com/courtsidehq/courtside-api/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)
	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// AssignRole назначает пользователю роль.
	AssignRole(ctx context.Context, userUID, role string) (int, error)
	// GetRoleByUserUID возвращает роль пользователя.
	GetRoleByUserUID(ctx context.Context, userUID string) (string, error)
}

// Session — идентичность, которую выдаёт провайдер сессий.
type Session struct {
	UserUID  string
	Username string
	Role     string
}

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// New создает новый экземпляр Service.
func New(users UserRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register создает нового пользователя с хэшированием пароля и ролью "user".
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
	}
	uid, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return "", err
	}
	if _, err := s.users.AssignRole(ctx, uid, models.RoleUser); err != nil {
		return "", err
	}
	return uid, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", errors.New("invalid credentials")
	}
	role, err = s.users.GetRoleByUserUID(ctx, user.UID)
	if err != nil {
		return "", "", err
	}
	if role == "" {
		role = models.RoleUser
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, role, user.UID)
	if err != nil {
		return "", "", err
	}
	return token, role, nil
}

// ValidateToken проверяет JWT и возвращает сессию, если токен корректен.
func (s *Service) ValidateToken(_ context.Context, token string) (*Session, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, err
	}
	return &Session{
		UserUID:  claims.UserUID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
