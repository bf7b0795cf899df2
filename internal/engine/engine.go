// Package engine wires the tick ingress, instrument router, windowing
// core, alert evaluator, and sink lanes (C1-C6) into the single
// running process, matching the teacher's cmd/mdengine orchestration
// style: one goroutine per concern, wired together in Run, cancelled
// via a shared context.Context.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/cache"
	"github.com/Datta-sai-vvn/StormAlert/internal/evaluator"
	"github.com/Datta-sai-vvn/StormAlert/internal/ingress"
	"github.com/Datta-sai-vvn/StormAlert/internal/metrics"
	"github.com/Datta-sai-vvn/StormAlert/internal/model"
	"github.com/Datta-sai-vvn/StormAlert/internal/router"
	"github.com/Datta-sai-vvn/StormAlert/internal/sink"
	"github.com/Datta-sai-vvn/StormAlert/internal/windowing"
)

// Config controls engine-owned tuning knobs; infrastructure
// dependencies (store, broadcaster, notifier egress, tick source) are
// supplied as concrete adapters to New.
type Config struct {
	IngressCapacity      int
	CacheRefreshInterval time.Duration
	RetentionInterval    time.Duration
	RetentionMaxAge      time.Duration
}

// Engine is the running alerting pipeline.
type Engine struct {
	cfg    Config
	log    *slog.Logger
	source model.TickSource
	store  model.Store

	ingress   *ingress.Ingress
	table     *router.Table
	core      *windowing.Core
	evaluator *evaluator.Evaluator
	sink      *sink.Sink
	refresher *cache.Refresher
	retention *cache.RetentionWorker
	metrics   *metrics.Metrics
	health    *metrics.HealthStatus

	tickCh chan model.Tick

	mu              sync.Mutex
	restarting      bool
	cancelRun       context.CancelFunc
	lastSuppressed  uint64
}

// New builds an Engine from its concrete collaborators. The tick
// source, store, and sink's broadcaster/notifier are wired by the
// caller (cmd/stormalert-engine) per the config-and-wiring component.
func New(cfg Config, log *slog.Logger, source model.TickSource, store model.Store, snk *sink.Sink, m *metrics.Metrics, health *metrics.HealthStatus) *Engine {
	if cfg.IngressCapacity <= 0 {
		cfg.IngressCapacity = 1024
	}
	if cfg.CacheRefreshInterval <= 0 {
		cfg.CacheRefreshInterval = 60 * time.Second
	}
	if cfg.RetentionInterval <= 0 {
		cfg.RetentionInterval = 24 * time.Hour
	}
	if cfg.RetentionMaxAge <= 0 {
		cfg.RetentionMaxAge = 720 * time.Hour
	}

	core := windowing.NewCore()
	table := router.NewTable()

	return &Engine{
		cfg:       cfg,
		log:       log,
		source:    source,
		store:     store,
		ingress:   ingress.New(cfg.IngressCapacity),
		table:     table,
		core:      core,
		evaluator: evaluator.New(core),
		sink:      snk,
		refresher: cache.NewRefresher(store, table, core, cfg.CacheRefreshInterval, log),
		retention: cache.NewRetentionWorker(store, cfg.RetentionInterval, cfg.RetentionMaxAge, log),
		metrics:   m,
		health:    health,
		tickCh:    make(chan model.Tick, 1),
	}
}

// PrefsLookup resolves a user's notification preferences from the
// current routing snapshot, for wiring into notification.Fanout. It
// scans the snapshot rather than maintaining a parallel index, since
// it is only ever called on the cold path of an alert actually firing.
func (e *Engine) PrefsLookup(userID string) (model.NotificationPrefs, bool) {
	for _, token := range e.table.Tokens() {
		watch := e.table.Lookup(token)
		if watch == nil {
			continue
		}
		for _, sub := range watch.Subscribers {
			if sub.UserID == userID {
				return sub.Settings.Notify, true
			}
		}
	}
	return model.NotificationPrefs{}, false
}

// SubscribedTokens returns every instrument token currently routed,
// used to (re)subscribe the tick source after a settings reload.
func (e *Engine) SubscribedTokens() []string {
	keys := e.table.Tokens()
	tokens := make([]string, 0, len(keys))
	for _, key := range keys {
		if watch := e.table.Lookup(key); watch != nil {
			tokens = append(tokens, watch.Token)
		}
	}
	return tokens
}

// EnqueueTicks hands a batch of raw ticks to the ingress queue. The
// tick-source-facing goroutine (started by Run) is the only intended
// caller, but Enqueue is safe from any goroutine.
func (e *Engine) EnqueueTicks(batch []model.Tick) {
	e.ingress.Enqueue(batch)
	if e.metrics != nil {
		e.metrics.TotalTicks.Add(float64(len(batch)))
	}
}

// Run starts every engine goroutine (the pipeline consumer, which also
// owns the persistence flush timer, the cache refresher, the retention
// worker, the tick relay, and the tick source's own streaming loop)
// and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancelRun = cancel
	e.mu.Unlock()
	defer cancel()

	if err := e.refresher.RefreshOnce(runCtx); err != nil && e.log != nil {
		e.log.Error("initial settings load failed", "error", err)
	}
	if tokens := e.SubscribedTokens(); len(tokens) > 0 {
		if err := e.source.Subscribe(tokens); err != nil && e.log != nil {
			e.log.Error("initial tick source subscribe failed", "error", err)
		}
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.refresher.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.retention.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := e.source.Run(runCtx, e.tickCh); err != nil && e.log != nil {
			e.log.Error("tick source terminated", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.runTickRelay(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.runPipeline(runCtx)
	}()

	<-runCtx.Done()
	wg.Wait()
	return nil
}

// runTickRelay forwards single ticks arriving from the tick source
// into the bounded ingress queue as one-tick batches, so the
// drop-oldest discipline in internal/ingress governs backpressure
// uniformly regardless of how the upstream source delivers ticks.
func (e *Engine) runTickRelay(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-e.tickCh:
			e.EnqueueTicks([]model.Tick{tick})
		}
	}
}

// Restart re-establishes the upstream tick source session. Called by
// the token watchdog on expiry, or by an operator-triggered recovery
// path; accessToken may be empty to let the source re-resolve its own
// credentials.
func (e *Engine) Restart(ctx context.Context, accessToken string) error {
	e.mu.Lock()
	if e.restarting {
		e.mu.Unlock()
		return nil
	}
	e.restarting = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.restarting = false
		e.mu.Unlock()
	}()

	if e.log != nil {
		e.log.Info("restarting tick source")
	}
	return e.source.Restart(ctx, accessToken)
}

// Shutdown cancels every engine goroutine started by Run.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelRun != nil {
		e.cancelRun()
	}
}
