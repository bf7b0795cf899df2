// Package notification delivers fired alerts to a user's configured
// external channels (email, WhatsApp, Telegram) with bounded,
// non-blocking fan-out and retry-with-backoff per channel.
package notification

import (
	"context"
	"log/slog"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// LogNotifier is a development-mode notifier that logs the alert
// instead of delivering it over a real channel.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, alert model.AlertRecord) error {
	n.log.Info("alert notification", "user_id", alert.UserID, "symbol", alert.TradingSymbol, "kind", alert.Kind, "message", alert.Message)
	return nil
}
