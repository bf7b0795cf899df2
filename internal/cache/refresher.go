package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
	"github.com/Datta-sai-vvn/StormAlert/internal/router"
	"github.com/Datta-sai-vvn/StormAlert/internal/windowing"
)

// Refresher periodically reloads active user settings from the store
// and republishes the routing snapshot. It also reconciles windowing
// state: when a subscriber's rolling window length changes between
// reloads, the old (now orphaned) deque bucket is invalidated so it
// doesn't linger forever.
type Refresher struct {
	store    model.Store
	table    *router.Table
	core     *windowing.Core
	interval time.Duration
	log      *slog.Logger

	// prevWindow remembers the window length each (user,token) pair used
	// on the last reload, so a changed value can be invalidated.
	prevWindow map[windowKey]int
}

type windowKey struct {
	userID string
	token  string
}

// NewRefresher builds a cache refresher. interval controls how often
// LoadAllSettings is polled; the configured default
// (CACHE_REFRESH_INTERVAL) is 60s.
func NewRefresher(store model.Store, table *router.Table, core *windowing.Core, interval time.Duration, log *slog.Logger) *Refresher {
	return &Refresher{
		store:      store,
		table:      table,
		core:       core,
		interval:   interval,
		log:        log,
		prevWindow: make(map[windowKey]int),
	}
}

// RefreshOnce performs a single synchronous reload. Exported so the
// engine can force a load at startup before entering the steady-state
// ticker loop.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	settings, err := r.store.LoadAllSettings(ctx)
	if err != nil {
		return err
	}

	watches := make(map[string]*model.StockWatch, len(settings))
	seen := make(map[windowKey]int, len(settings))

	for i := range settings {
		s := &settings[i]
		if !s.Active {
			continue
		}
		key := s.Key()
		w, ok := watches[key]
		if !ok {
			w = &model.StockWatch{Token: s.Token, Exchange: s.Exchange}
			watches[key] = w
		}
		w.Subscribers = append(w.Subscribers, model.Subscriber{UserID: s.UserID, Settings: s})

		if s.Algo.UsesRolling() {
			wk := windowKey{userID: s.UserID, token: s.Token}
			seen[wk] = s.WindowMinutes
			if prev, existed := r.prevWindow[wk]; existed && prev != s.WindowMinutes {
				r.core.InvalidateWindow(s.UserID, s.Token, prev)
			}
		}
	}

	for wk, prev := range r.prevWindow {
		if _, stillWatched := seen[wk]; !stillWatched {
			r.core.InvalidateWindow(wk.userID, wk.token, prev)
		}
	}
	r.prevWindow = seen

	r.table.Publish(watches)
	if r.log != nil {
		r.log.Info("settings cache refreshed", "instruments", len(watches), "rows", len(settings))
	}
	return nil
}

// Run polls RefreshOnce on interval until ctx is cancelled. Transient
// store errors are logged and the previous snapshot is left in place;
// the next tick tries again.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RefreshOnce(ctx); err != nil && r.log != nil {
				r.log.Error("settings cache refresh failed", "error", err)
			}
		}
	}
}
