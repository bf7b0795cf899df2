package engine

import (
	"context"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// runPipeline is the single goroutine that drains the ingress queue
// and fans each validated tick through the router, evaluator, and
// sink (C2 -> C3 -> C4 -> C5). It also owns the sink's persistence
// flush timer, since the sink's buffer is only ever touched from this
// goroutine — no locking is needed between Emit and flush.
func (e *Engine) runPipeline(ctx context.Context) {
	flushTicker := time.NewTicker(e.sink.FlushPeriod())
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case batch := <-e.ingress.C():
			e.processBatch(batch)
			if e.sink.ShouldFlushOnSize() {
				e.sink.FlushTick(ctx)
			}

		case <-flushTicker.C:
			e.sink.FlushTick(ctx)
			if e.metrics != nil {
				e.metrics.PersistenceBufferDepth.Set(float64(e.sink.BufferDepth()))
				e.metrics.MonitoredInstruments.Set(float64(e.table.Len()))

				suppressed := e.evaluator.Suppressed()
				if delta := suppressed - e.lastSuppressed; delta > 0 {
					e.metrics.AlertsSuppressedByCooldown.Add(float64(delta))
				}
				e.lastSuppressed = suppressed
			}
		}
	}
}

func (e *Engine) processBatch(batch []model.Tick) {
	now := time.Now().UTC()
	for _, tick := range batch {
		watch := e.table.Lookup(tick.Key())
		if watch == nil {
			continue
		}

		alerts := e.evaluator.Evaluate(tick, watch, now)
		for _, alert := range alerts {
			e.sink.Emit(alert)
			if e.metrics != nil {
				e.metrics.AlertsEmitted.WithLabelValues(string(alert.Kind)).Inc()
			}
		}
	}

	if e.health != nil {
		e.health.SetLastTickTime(now)
	}
}
