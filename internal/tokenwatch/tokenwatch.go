// Package tokenwatch implements the token watchdog (C7): it polls the
// upstream tick source's session token for expiry and triggers an
// engine restart before the session is forcibly dropped, degrading
// the engine rather than letting it crash on a rejected reconnect.
// Grounded on the teacher's HealthStatus.StartLivenessChecker polling
// loop shape, retargeted from a health probe to a token-expiry check.
package tokenwatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// Restarter is the subset of engine.Engine the watchdog needs.
type Restarter interface {
	Restart(ctx context.Context, accessToken string) error
}

// Watchdog polls model.Store for the current SystemTokenState and
// calls Restarter.Restart once it's within lead of expiring.
type Watchdog struct {
	store     model.Store
	restarter Restarter
	interval  time.Duration
	lead      time.Duration
	log       *slog.Logger
}

// New builds a token watchdog. interval is how often the stored token
// is checked; lead is how far ahead of ExpiresAt a restart is
// triggered.
func New(store model.Store, restarter Restarter, interval, lead time.Duration, log *slog.Logger) *Watchdog {
	return &Watchdog{store: store, restarter: restarter, interval: interval, lead: lead, log: log}
}

// Run polls on interval until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkOnce(ctx)
		}
	}
}

func (w *Watchdog) checkOnce(ctx context.Context) {
	tok, err := w.store.LoadSystemToken(ctx)
	if err != nil {
		if w.log != nil {
			w.log.Error("token watchdog: load system token failed", "error", err)
		}
		return
	}

	now := time.Now()
	if tok.ExpiresAt.IsZero() {
		return
	}
	if !tok.NearExpiry(now, w.lead) {
		return
	}

	if w.log != nil {
		w.log.Warn("tick source session nearing expiry, restarting", "expires_at", tok.ExpiresAt)
	}

	// The engine owns fetching a freshly issued token (an external
	// credential-exchange concern per the engine's scope); passing an
	// empty string here signals the engine to re-resolve it itself.
	if err := w.restarter.Restart(ctx, ""); err != nil && w.log != nil {
		w.log.Error("token watchdog: engine restart failed", "error", err)
	}
}
