package billing

// Customer — запись customer у платёжного провайдера.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type customerList struct {
	Data []Customer `json:"data"`
}

// CreateCheckoutSessionRequest — запрос на создание checkout-сессии подписки.
type CreateCheckoutSessionRequest struct {
	CustomerID string `json:"customer"`
	PriceID    string `json:"price"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
	Mode       string `json:"mode"` // всегда "subscription"
}

// CheckoutSession — ответ провайдера с одноразовым redirect URL.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreatePortalSessionRequest — запрос на сессию портала управления подпиской.
type CreatePortalSessionRequest struct {
	CustomerID string `json:"customer"`
	ReturnURL  string `json:"return_url"`
}

// PortalSession — ответ провайдера с redirect URL портала.
type PortalSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
