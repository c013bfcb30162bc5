package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/courtsidehq/courtside-api/internal/services/ingress"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) ProcessWebhookEvent(ctx context.Context, rawBody []byte, payload *ingress.Payload) error {
	args := m.Called(ctx, rawBody, payload)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhookHandler_ServeHTTP(t *testing.T) {
	const secret = "webhook_secret"
	validBody := []byte(`{
		"event": "customer.subscription.created",
		"object": {
			"id": "sub_1",
			"customer": "cus_1",
			"status": "active",
			"current_period_end": "2026-10-01T00:00:00Z",
			"metadata": {"user_uid": "uid-1"}
		}
	}`)

	tests := []struct {
		name           string
		body           []byte
		signature      string
		setupMocks     func(s *ServiceMock)
		wantStatusCode int
	}{
		{
			name:      "valid signature and payload",
			body:      validBody,
			signature: sign(secret, validBody),
			setupMocks: func(s *ServiceMock) {
				s.On("ProcessWebhookEvent", mock.Anything, validBody, mock.MatchedBy(func(p *ingress.Payload) bool {
					return p.Event == ingress.EventSubscriptionCreated &&
						p.Object.Metadata["user_uid"] == "uid-1"
				})).Return(nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing signature",
			body:           validBody,
			signature:      "",
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "wrong signature",
			body:           validBody,
			signature:      sign("other_secret", validBody),
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "signature over different body",
			body:           validBody,
			signature:      sign(secret, []byte(`{"event":"tampered"}`)),
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "valid signature but malformed payload",
			body:           []byte(`{not json`),
			signature:      sign(secret, []byte(`{not json`)),
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:      "processing failure returns 500 for provider retry",
			body:      validBody,
			signature: sign(secret, validBody),
			setupMocks: func(s *ServiceMock) {
				s.On("ProcessWebhookEvent", mock.Anything, validBody, mock.Anything).
					Return(errors.New("db down")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(ServiceMock)
			handler := New(newNoopLogger(), service, secret)

			tt.setupMocks(service)

			req := httptest.NewRequest(http.MethodPost, "/billing/webhook", bytes.NewReader(tt.body))
			if tt.signature != "" {
				req.Header.Set("X-Api-Signature", tt.signature)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			service.AssertExpectations(t)
		})
	}
}
