package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// RetentionWorker periodically purges alert history past the
// configured retention window so the document store doesn't grow
// unbounded.
type RetentionWorker struct {
	store    model.Store
	interval time.Duration
	maxAge   time.Duration
	log      *slog.Logger
}

// NewRetentionWorker builds a retention worker. The configured default
// purges alerts older than 30 days (720h), checked every 24h.
func NewRetentionWorker(store model.Store, interval, maxAge time.Duration, log *slog.Logger) *RetentionWorker {
	return &RetentionWorker{store: store, interval: interval, maxAge: maxAge, log: log}
}

// Run purges on interval until ctx is cancelled.
func (w *RetentionWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.purgeOnce(ctx)
		}
	}
}

func (w *RetentionWorker) purgeOnce(ctx context.Context) {
	cutoff := time.Now().Add(-w.maxAge).Unix()
	n, err := w.store.DeleteAlertsOlderThan(ctx, cutoff)
	if err != nil {
		if w.log != nil {
			w.log.Error("alert retention purge failed", "error", err)
		}
		return
	}
	if w.log != nil && n > 0 {
		w.log.Info("alert retention purge complete", "deleted", n)
	}
}
