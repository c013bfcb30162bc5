package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	args := m.Called(ctx, email, username, rawPassword)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		setupMocks     func(s *ServiceMock)
		wantStatusCode int
		wantStatus     string
		wantError      string
		wantUID        string
	}{
		{
			name:        "valid registration",
			requestBody: Request{Email: "fan@example.com", Username: "fan", Password: "password123"},
			setupMocks: func(s *ServiceMock) {
				s.On("Register", mock.Anything, "fan@example.com", "fan", "password123").
					Return("uid-1", nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
			wantUID:        "uid-1",
		},
		{
			name:           "invalid json body",
			requestBody:    "{bad",
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
			wantError:      "invalid request body",
		},
		{
			name:           "validation error - bad email",
			requestBody:    Request{Email: "not-an-email", Username: "fan", Password: "password123"},
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
			wantError:      "field Email must be a valid email",
		},
		{
			name:        "service error",
			requestBody: Request{Email: "fan@example.com", Username: "fan", Password: "password123"},
			setupMocks: func(s *ServiceMock) {
				s.On("Register", mock.Anything, "fan@example.com", "fan", "password123").
					Return("", errors.New("duplicate username")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
			wantStatus:     "Error",
			wantError:      "could not register user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(ServiceMock)
			handler := New(newNoopLogger(), service)

			tt.setupMocks(service)

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			}
			if tt.wantUID != "" {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, tt.wantUID, data["user_uid"])
			}

			service.AssertExpectations(t)
		})
	}
}
