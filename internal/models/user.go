// Package models содержит доменные структуры приложения: пользователей,
// роли, записи о подписке биллинг-провайдера и производное решение о доступе.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
// BillingCustomerID заполняется при первом событии провайдера и
// используется для открытия портала управления подпиской.
type User struct {
	UID               string     // Уникальный идентификатор пользователя
	Email             string     // Электронная почта
	Username          string     // Имя пользователя (уникальное)
	PasswordHash      string     // Хэш пароля пользователя
	BillingCustomerID *string    // Идентификатор customer у платёжного провайдера
	CreatedAt         time.Time  // Дата регистрации
}
