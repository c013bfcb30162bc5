// Package billing реализует REST-клиент платёжного провайдера:
// поиск и создание customer, checkout-сессии и сессии портала управления.
// Жизненный цикл самой подписки провайдер сообщает через webhook,
// который обрабатывает services/ingress.
package billing

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент платёжного провайдера.
func NewClient(apiURL, secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) newRequest(method, path string, body interface{}) (*http.Request, error) {
	requestURL := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequest(method, requestURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errors.New("unexpected status: " + resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// FindCustomerByEmail ищет существующего customer по email.
// Возвращает (nil, nil), если customer ещё не создавался.
func (c *Client) FindCustomerByEmail(email string) (*Customer, error) {
	req, err := c.newRequest("GET", "/customers?email="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, err
	}

	var list customerList
	if err := c.do(req, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	return &list.Data[0], nil
}

// CreateCustomer создаёт нового customer с указанным email.
func (c *Client) CreateCustomer(email string) (*Customer, error) {
	req, err := c.newRequest("POST", "/customers", map[string]string{"email": email})
	if err != nil {
		return nil, err
	}

	var customer Customer
	if err := c.do(req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateCheckoutSession запрашивает одноразовый redirect URL для оформления подписки.
func (c *Client) CreateCheckoutSession(reqParams CreateCheckoutSessionRequest) (*CheckoutSession, error) {
	reqParams.Mode = "subscription"
	req, err := c.newRequest("POST", "/checkout/sessions", reqParams)
	if err != nil {
		return nil, err
	}

	var session CheckoutSession
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreatePortalSession запрашивает redirect URL портала управления подпиской.
func (c *Client) CreatePortalSession(reqParams CreatePortalSessionRequest) (*PortalSession, error) {
	req, err := c.newRequest("POST", "/billing_portal/sessions", reqParams)
	if err != nil {
		return nil, err
	}

	var session PortalSession
	if err := c.do(req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
