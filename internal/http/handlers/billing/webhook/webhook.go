// Package webhook реализует HTTP-обработчик входящих событий платёжного
// провайдера. Подпись проверяется на сыром теле до разбора JSON.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"

	"github.com/courtsidehq/courtside-api/internal/lib/sl"
	"github.com/courtsidehq/courtside-api/internal/services/ingress"
)

// Service описывает интерфейс обработки событий провайдера.
type Service interface {
	ProcessWebhookEvent(ctx context.Context, rawBody []byte, payload *ingress.Payload) error
}

// Handler обрабатывает webhook платёжного провайдера.
type Handler struct {
	log           *slog.Logger // Логгер для записи информации и ошибок
	service       Service
	webhookSecret string // Секрет для проверки подписи
}

// New создает новый Handler с переданными логгером, сервисом и секретом подписи.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// Проверка подписи webhook (X-Api-Signature)
func (h *Handler) verifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedSig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

// ServeHTTP godoc
// @Summary Webhook платёжного провайдера
// @Description Принимает события жизненного цикла подписки и перезаписывает запись о подписке пользователя.
// @Tags Billing
// @Accept  json
// @Success 200 "Событие обработано"
// @Failure 400 "Некорректное тело"
// @Failure 401 "Неверная подпись"
// @Router /billing/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Api-Signature")
	if signature == "" || !h.verifySignature(h.webhookSecret, body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	payload, err := ingress.ParsePayload(body)
	if err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.service.ProcessWebhookEvent(r.Context(), body, payload); err != nil {
		log.Error("failed to process webhook event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.Info("webhook processed successfully", slog.String("event", payload.Event))
	w.WriteHeader(http.StatusOK)
}
