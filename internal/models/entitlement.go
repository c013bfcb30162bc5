package models

// EntitlementDecision — производное решение о доступе пользователя.
// Никогда не хранится как источник истины: пересчитывается из записи о
// подписке и роли, в кеше живёт только как last-known-good снимок.
type EntitlementDecision struct {
	IsPremium bool `json:"is_premium"` // Доступ к premium-аналитике
	IsAdmin   bool `json:"is_admin"`   // Административные привилегии
}

// FreeTier — решение по умолчанию: без подписки, без привилегий.
// Используется и как безопасный ответ при недоступности хранилища.
func FreeTier() EntitlementDecision {
	return EntitlementDecision{}
}
