// Package sink fans a fired alert out across the three sink lanes the
// engine ships with: persistence (Mongo, spilling to a local SQLite
// spool when the store is unreachable), broadcast (the gateway push
// fabric), and notification (the bounded egress to external
// channels). Grounded on the teacher's sqlite writer's swap-buffer
// flush loop, retargeted from a single writer to three lanes that Emit
// feeds directly, one call per lane.
package sink

import (
	"context"
	"log/slog"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
	"github.com/Datta-sai-vvn/StormAlert/internal/notification"
	"github.com/Datta-sai-vvn/StormAlert/internal/resilience"
	"github.com/Datta-sai-vvn/StormAlert/internal/store/spool"
)

const (
	defaultFlushSize   = 1000
	defaultFlushPeriod = time.Second
	defaultBufferCap   = 10000
	spoolReplayBatch   = 500
)

// Sink receives fired alerts from the evaluator and distributes them
// to all three lanes. Emit must never block the pipeline consumer.
type Sink struct {
	store   model.Store
	breaker *resilience.CircuitBreaker
	spool   *spool.Spool

	broadcaster model.Broadcaster
	egress      *notification.Egress

	buf          []model.AlertRecord
	bufCap       int
	flushSize    int
	flushPeriod  time.Duration
	shedCount    uint64

	log *slog.Logger
}

// Config controls the persistence lane's batching and circuit breaker.
type Config struct {
	FlushSize   int
	FlushPeriod time.Duration
	BufferCap   int
	MaxFailures int
	ResetAfter  time.Duration
}

// New builds a Sink. spl may be nil to disable spool spillover (the
// persistence lane then simply sheds alerts while the store breaker
// is open).
func New(store model.Store, broadcaster model.Broadcaster, egress *notification.Egress, spl *spool.Spool, cfg Config, log *slog.Logger) *Sink {
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = defaultFlushSize
	}
	if cfg.FlushPeriod <= 0 {
		cfg.FlushPeriod = defaultFlushPeriod
	}
	if cfg.BufferCap <= 0 {
		cfg.BufferCap = defaultBufferCap
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetAfter <= 0 {
		cfg.ResetAfter = 30 * time.Second
	}

	return &Sink{
		store:       store,
		breaker:     resilience.New(cfg.MaxFailures, cfg.ResetAfter),
		spool:       spl,
		broadcaster: broadcaster,
		egress:      egress,
		buf:         make([]model.AlertRecord, 0, cfg.FlushSize),
		bufCap:      cfg.BufferCap,
		flushSize:   cfg.FlushSize,
		flushPeriod: cfg.FlushPeriod,
		log:         log,
	}
}

// Emit hands a fired alert to all three lanes. Called from the
// pipeline's single consumer goroutine, so the persistence buffer
// needs no locking.
func (s *Sink) Emit(alert model.AlertRecord) {
	s.enqueuePersist(alert)

	if s.broadcaster != nil {
		s.broadcaster.PublishAlert(alert)
	}

	if s.egress != nil {
		if !s.egress.Enqueue(alert) && s.log != nil {
			s.log.Warn("notification egress full, alert dropped", "alert_id", alert.AlertID)
		}
	}
}

func (s *Sink) enqueuePersist(alert model.AlertRecord) {
	if len(s.buf) >= s.bufCap {
		s.shedCount++
		s.buf = s.buf[1:]
		if s.log != nil {
			s.log.Warn("persistence buffer at capacity, shedding oldest alert", "shed_total", s.shedCount)
		}
	}
	s.buf = append(s.buf, alert)
}

// BufferDepth reports how many alerts are buffered awaiting flush.
func (s *Sink) BufferDepth() int {
	return len(s.buf)
}

// Shed returns how many alerts have been shed due to a full
// persistence buffer.
func (s *Sink) Shed() uint64 {
	return s.shedCount
}

// flush writes the persistence buffer to the store (or replays the
// spool when the buffer is empty). It reads s.buf, which Emit also
// touches, so the caller serializes flush with Emit: it is reached
// through FlushTick, which the engine calls only from the pipeline
// goroutine (see runPipeline).
func (s *Sink) flush(ctx context.Context) {
	if len(s.buf) == 0 {
		s.replaySpool(ctx)
		return
	}

	batch := s.buf
	s.buf = make([]model.AlertRecord, 0, s.flushSize)

	err := s.breaker.Execute(func() error {
		return s.store.BulkInsertAlerts(ctx, batch)
	})
	if err == nil {
		s.replaySpool(ctx)
		return
	}

	if s.log != nil {
		s.log.Error("persistence flush failed", "error", err, "breaker_state", s.breaker.CurrentState().String())
	}
	if s.spool == nil {
		return
	}
	if spoolErr := s.spool.Write(batch); spoolErr != nil && s.log != nil {
		s.log.Error("spool write failed, alerts lost", "error", spoolErr, "count", len(batch))
	}
}

// replaySpool attempts to drain spooled alerts back into the primary
// store once the breaker is closed again.
func (s *Sink) replaySpool(ctx context.Context) {
	if s.spool == nil || s.breaker.CurrentState() != resilience.StateClosed {
		return
	}

	rows, err := s.spool.Drain(spoolReplayBatch)
	if err != nil || len(rows) == 0 {
		return
	}

	replay := make([]model.AlertRecord, len(rows))
	for i, r := range rows {
		replay[i] = r.Alert
	}

	if err := s.store.BulkInsertAlerts(ctx, replay); err != nil {
		if s.log != nil {
			s.log.Warn("spool replay failed, will retry next flush", "error", err)
		}
		return
	}

	for _, r := range rows {
		if err := s.spool.Delete(r.RowID); err != nil && s.log != nil {
			s.log.Warn("spool row delete failed after successful replay", "row_id", r.RowID, "error", err)
		}
	}
	if s.log != nil {
		s.log.Info("replayed spooled alerts to primary store", "count", len(rows))
	}
}

// FlushTick exposes the periodic flush for the engine to invoke from
// its own select loop on the flushPeriod timer.
func (s *Sink) FlushTick(ctx context.Context) {
	s.flush(ctx)
}

// FlushPeriod returns the configured flush interval.
func (s *Sink) FlushPeriod() time.Duration {
	return s.flushPeriod
}

// FlushSize returns the configured record-count flush threshold.
func (s *Sink) FlushSize() int {
	return s.flushSize
}

// ShouldFlushOnSize reports whether the buffer has reached its
// size-triggered flush threshold.
func (s *Sink) ShouldFlushOnSize() bool {
	return len(s.buf) >= s.flushSize
}
