package models

import "time"

// Статусы записи о подписке, как их сообщает платёжный провайдер.
// Переход canceled -> active возможен только через новый checkout:
// ingress перезаписывает единственную строку пользователя по user_uid.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// SubscriptionRecord отражает представление платёжного провайдера о платной
// подписке пользователя. Строка единственная на пользователя и мутируется
// только обработчиком webhook-событий (single writer).
type SubscriptionRecord struct {
	ID               int       // Идентификатор записи
	UserUID          string    // Идентификатор пользователя-владельца
	CustomerID       string    // Идентификатор customer у провайдера
	PriceID          string    // Идентификатор тарифа
	Status           string    // active, trialing, past_due или canceled
	CurrentPeriodEnd time.Time // Конец оплаченного периода
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsPaidActive сообщает, даёт ли запись платный доступ в момент now.
// past_due сознательно не даёт доступа, даже если период ещё не истёк.
func (r *SubscriptionRecord) IsPaidActive(now time.Time) bool {
	if r == nil {
		return false
	}
	if r.Status != StatusActive && r.Status != StatusTrialing {
		return false
	}
	return r.CurrentPeriodEnd.After(now)
}

// BillingEvent хранит историю событий провайдера. Строки только добавляются,
// текущая запись о подписке при этом перезаписывается.
type BillingEvent struct {
	ID         int
	UserUID    string
	EventType  string
	Payload    []byte
	ReceivedAt time.Time
}
