// Package checkout реализует мост к платёжному провайдеру: оформление новой
// подписки и портал управления существующей. В отличие от резолвера ошибки
// здесь типизированы и отдаются вызывающему: редирект на сломанный платёжный
// URL хуже явной ошибки.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/courtsidehq/courtside-api/internal/billing"
	"github.com/courtsidehq/courtside-api/internal/models"
)

// Типизированные ошибки моста.
var (
	// ErrConfiguration — не задан тариф или ключи провайдера. Не деградирует
	// молча: операция невозможна, пока оператор не поправит конфиг.
	ErrConfiguration = errors.New("billing configuration missing")
	// ErrUpstream — платёжный провайдер недоступен или ответил ошибкой.
	ErrUpstream = errors.New("billing provider unavailable")
	// ErrUnauthenticated — операция требует аутентифицированную сессию.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrNoBillingCustomer — у пользователя ещё не было ни одного checkout,
	// открывать портал управления нечем.
	ErrNoBillingCustomer = errors.New("user has no billing customer")
)

// Provider описывает используемые операции клиента платёжного провайдера.
type Provider interface {
	FindCustomerByEmail(email string) (*billing.Customer, error)
	CreateCustomer(email string) (*billing.Customer, error)
	CreateCheckoutSession(req billing.CreateCheckoutSessionRequest) (*billing.CheckoutSession, error)
	CreatePortalSession(req billing.CreatePortalSessionRequest) (*billing.PortalSession, error)
}

// UserRepository описывает чтение пользователя для операции портала.
type UserRepository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Config — параметры checkout: единственный тариф и фиксированные адреса возврата.
type Config struct {
	PriceID      string
	SuccessURL   string
	CancelURL    string
	PortalReturn string
}

// Service реализует операции моста.
type Service struct {
	provider Provider
	users    UserRepository
	cfg      Config
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(provider Provider, users UserRepository, cfg Config, log *slog.Logger) *Service {
	return &Service{
		provider: provider,
		users:    users,
		cfg:      cfg,
		log:      log,
	}
}

// StartCheckout возвращает одноразовый redirect URL для оформления подписки.
//
// Аутентификация не требуется: guest checkout поддерживается сознательно.
// Customer ищется по email и создаётся только при отсутствии — повторный
// вызов для того же email переиспользует первого customer. Каждый шаг
// выполняется только после успеха предыдущего, частичное состояние не
// сохраняется.
func (s *Service) StartCheckout(ctx context.Context, userEmail string) (string, error) {
	const op = "checkout.StartCheckout"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if s.cfg.PriceID == "" {
		return "", fmt.Errorf("%s: price id is not set: %w", op, ErrConfiguration)
	}

	customer, err := s.provider.FindCustomerByEmail(userEmail)
	if err != nil {
		return "", fmt.Errorf("%s: find customer: %w: %w", op, ErrUpstream, err)
	}
	if customer == nil {
		customer, err = s.provider.CreateCustomer(userEmail)
		if err != nil {
			return "", fmt.Errorf("%s: create customer: %w: %w", op, ErrUpstream, err)
		}
		s.log.Info("created billing customer", slog.String("customer_id", customer.ID))
	}

	session, err := s.provider.CreateCheckoutSession(billing.CreateCheckoutSessionRequest{
		CustomerID: customer.ID,
		PriceID:    s.cfg.PriceID,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("%s: create session: %w: %w", op, ErrUpstream, err)
	}
	return session.URL, nil
}

// StartPortalSession возвращает redirect URL портала управления подпиской
// для существующего customer аутентифицированного пользователя.
func (s *Service) StartPortalSession(ctx context.Context, userUID string) (string, error) {
	const op = "checkout.StartPortalSession"
	if userUID == "" {
		return "", fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
	}
	if user.BillingCustomerID == nil {
		return "", fmt.Errorf("%s: %w", op, ErrNoBillingCustomer)
	}

	session, err := s.provider.CreatePortalSession(billing.CreatePortalSessionRequest{
		CustomerID: *user.BillingCustomerID,
		ReturnURL:  s.cfg.PortalReturn,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
	}
	return session.URL, nil
}
