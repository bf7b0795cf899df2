package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

const (
	redisQueueKey  = "stormalert:notifications"
	retryAttempts  = 3
	retryBaseDelay = time.Second
)

// PrefsLookup resolves a user's current notification preferences. The
// engine wires this to the same settings snapshot the cache refresher
// publishes, so Fanout never needs its own copy of user settings.
type PrefsLookup func(userID string) (model.NotificationPrefs, bool)

// Fanout is the concrete model.Notifier the engine plugs into the
// sink's notification lane. When a Redis client is configured, alerts
// are enqueued onto a shared list so a separate worker pool (possibly
// on another instance) can deliver them; otherwise Fanout sends
// directly to each enabled channel with retry-with-backoff, matching
// the direct-send fallback path.
type Fanout struct {
	prefs    PrefsLookup
	telegram *TelegramNotifier
	email    *EmailNotifier
	whatsapp *WhatsAppNotifier
	queue    *redis.Client
	log      *slog.Logger
}

// NewFanout builds a notifier that dispatches to whichever concrete
// channel notifiers are non-nil. queue may be nil to force direct
// sends.
func NewFanout(prefs PrefsLookup, telegram *TelegramNotifier, email *EmailNotifier, whatsapp *WhatsAppNotifier, queue *redis.Client, log *slog.Logger) *Fanout {
	return &Fanout{prefs: prefs, telegram: telegram, email: email, whatsapp: whatsapp, queue: queue, log: log}
}

type queuedNotification struct {
	UserID  string                  `json:"user_id"`
	Prefs   model.NotificationPrefs `json:"prefs"`
	Message string                  `json:"message"`
}

// Send implements model.Notifier.
func (f *Fanout) Send(ctx context.Context, alert model.AlertRecord) error {
	prefs, ok := f.prefs(alert.UserID)
	if !ok || !prefs.AnyEnabled() {
		return nil
	}

	if f.queue != nil {
		payload, err := json.Marshal(queuedNotification{UserID: alert.UserID, Prefs: prefs, Message: alert.Message})
		if err != nil {
			return err
		}
		if err := f.queue.RPush(ctx, redisQueueKey, payload).Err(); err != nil {
			f.log.Warn("notification queue enqueue failed, falling back to direct send", "error", err)
		} else {
			return nil
		}
	}

	if prefs.Email && f.email != nil {
		go f.retrySend(ctx, "email", func(ctx context.Context) error {
			return f.email.SendTo(ctx, prefs.EmailAddress, alert.Message)
		})
	}
	if prefs.WhatsApp && f.whatsapp != nil {
		go f.retrySend(ctx, "whatsapp", func(ctx context.Context) error {
			return f.whatsapp.SendTo(ctx, prefs.WhatsAppNumber, alert.Message)
		})
	}
	if prefs.Telegram && f.telegram != nil {
		go f.retrySend(ctx, "telegram", func(ctx context.Context) error {
			return f.telegram.SendTo(ctx, prefs.TelegramChatID, alert.Message)
		})
	}
	return nil
}

func (f *Fanout) retrySend(ctx context.Context, channel string, send func(context.Context) error) {
	delay := retryBaseDelay
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err := send(ctx); err != nil {
			if attempt == retryAttempts {
				f.log.Error("notification delivery failed permanently", "channel", channel, "error", err)
				return
			}
			f.log.Warn("notification delivery attempt failed, retrying", "channel", channel, "attempt", attempt, "error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			delay *= 2
			continue
		}
		return
	}
}
