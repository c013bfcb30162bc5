package models

import "time"

// Возможные роли пользователя. Роль premium назначается только
// административно (legacy-доступ без подписки), admin — оператором сервиса.
const (
	RoleUser    = "user"
	RolePremium = "premium"
	RoleAdmin   = "admin"
)

// RoleAssignment представляет назначение роли пользователю.
// Ролей может оказаться несколько, при разрешении доступа побеждает
// роль с наибольшими привилегиями.
type RoleAssignment struct {
	ID        int       // Идентификатор записи
	UserUID   string    // Идентификатор пользователя
	Role      string    // Роль: user, premium или admin
	CreatedAt time.Time // Дата назначения
}

// IsElevated сообщает, даёт ли роль premium-доступ без оплаченной подписки.
func IsElevated(role string) bool {
	return role == RolePremium || role == RoleAdmin
}
