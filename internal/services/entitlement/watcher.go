package entitlement

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/courtsidehq/courtside-api/internal/lib/sl"
	"github.com/courtsidehq/courtside-api/internal/rabbitmq"
)

// Watcher сводит два источника устаревания — push-уведомление об изменении
// строки подписки и фоновый тик — в одну очередь с единственным потребителем.
// Сообщение с пустым UserUID означает полный сброс кеша решений.
type Watcher struct {
	service  *Service
	log      *slog.Logger
	interval time.Duration
	events   chan rabbitmq.ChangeNotification
}

// NewWatcher создает новый Watcher с фоновым тиком заданного интервала.
func NewWatcher(service *Service, log *slog.Logger, interval time.Duration) *Watcher {
	return &Watcher{
		service:  service,
		log:      log,
		interval: interval,
		events:   make(chan rabbitmq.ChangeNotification, 64),
	}
}

// HandleMessage разбирает сообщение из очереди инвалидаций и ставит его
// в очередь потребителя. Используется как обработчик rabbitmq-консьюмера.
func (w *Watcher) HandleMessage(body []byte) error {
	const op = "entitlement.Watcher.HandleMessage"
	var notification rabbitmq.ChangeNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		w.log.Error("failed to unmarshal change notification", slog.String("op", op), sl.Err(err))
		// Нечитаемое сообщение не возвращаем в очередь.
		return nil
	}
	w.events <- notification
	return nil
}

// Run запускает потребителя очереди устаревания. Возвращается по отмене ctx.
func (w *Watcher) Run(ctx context.Context) {
	const op = "entitlement.Watcher.Run"
	log := w.log.With(slog.String("op", op))

	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case w.events <- rabbitmq.ChangeNotification{Reason: "fallback_tick"}:
				default:
					// Очередь и так полна инвалидаций, тик лишний.
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.events:
			if event.UserUID == "" {
				if err := w.service.InvalidateAll(); err != nil {
					log.Error("failed to flush decision cache", sl.Err(err))
				}
				continue
			}
			if err := w.service.Invalidate(event.UserUID); err != nil {
				log.Error("failed to invalidate decision",
					slog.String("user_uid", event.UserUID), sl.Err(err))
				continue
			}
			log.Info("decision invalidated",
				slog.String("user_uid", event.UserUID),
				slog.String("reason", event.Reason))
		}
	}
}
