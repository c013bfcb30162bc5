package resolve

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/courtsidehq/courtside-api/internal/http/middlewarectx"
	"github.com/courtsidehq/courtside-api/internal/models"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Resolve(ctx context.Context, userUID string) models.EntitlementDecision {
	args := m.Called(ctx, userUID)
	return args.Get(0).(models.EntitlementDecision)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestResolveHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		userUID        any
		setupMocks     func(s *ServiceMock)
		wantStatusCode int
		wantPremium    bool
		wantAdmin      bool
	}{
		{
			name:    "premium user",
			userUID: "uid-1",
			setupMocks: func(s *ServiceMock) {
				s.On("Resolve", mock.Anything, "uid-1").
					Return(models.EntitlementDecision{IsPremium: true}).Once()
			},
			wantStatusCode: http.StatusOK,
			wantPremium:    true,
		},
		{
			name:    "admin user",
			userUID: "uid-2",
			setupMocks: func(s *ServiceMock) {
				s.On("Resolve", mock.Anything, "uid-2").
					Return(models.EntitlementDecision{IsPremium: true, IsAdmin: true}).Once()
			},
			wantStatusCode: http.StatusOK,
			wantPremium:    true,
			wantAdmin:      true,
		},
		{
			name:    "free tier user",
			userUID: "uid-3",
			setupMocks: func(s *ServiceMock) {
				s.On("Resolve", mock.Anything, "uid-3").
					Return(models.FreeTier()).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing user uid in context",
			userUID:        nil,
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(ServiceMock)
			handler := New(newNoopLogger(), service)

			tt.setupMocks(service)

			req := httptest.NewRequest(http.MethodGet, "/entitlement", nil)
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			if uid, ok := tt.userUID.(string); ok {
				ctx = context.WithValue(ctx, middlewarectx.UserUID, uid)
			}
			req = req.WithContext(ctx)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			if tt.wantStatusCode == http.StatusOK {
				var got map[string]any
				assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				data := got["data"].(map[string]any)
				decision := data["entitlement"].(map[string]any)
				assert.Equal(t, tt.wantPremium, decision["is_premium"])
				assert.Equal(t, tt.wantAdmin, decision["is_admin"])
			}

			service.AssertExpectations(t)
		})
	}
}
