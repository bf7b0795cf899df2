package notification

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
	"github.com/Datta-sai-vvn/StormAlert/internal/ringbuf"
)

// Egress decouples the evaluator's hot path from notification
// delivery latency. Enqueue is non-blocking: on a full queue the
// alert is dropped (never the pipeline), and a counter tracks it.
type Egress struct {
	ring     *ringbuf.Ring[model.AlertRecord]
	notifier model.Notifier
	dropped  atomic.Uint64
	log      *slog.Logger
}

// NewEgress creates a bounded egress queue of the given capacity
// (rounded up to a power of two) in front of notifier.
func NewEgress(capacity int, notifier model.Notifier, log *slog.Logger) *Egress {
	return &Egress{
		ring:     ringbuf.New[model.AlertRecord](capacity),
		notifier: notifier,
		log:      log,
	}
}

// Enqueue offers alert to the queue. Never blocks; returns false (and
// increments the dropped counter) if the queue is full.
func (e *Egress) Enqueue(alert model.AlertRecord) bool {
	if e.ring.Push(alert) {
		return true
	}
	e.dropped.Add(1)
	return false
}

// Dropped returns the number of alerts discarded because the egress
// queue was full.
func (e *Egress) Dropped() uint64 {
	return e.dropped.Load()
}

// Run drains the queue and hands each alert to the notifier until ctx
// is cancelled. A short idle sleep avoids busy-spinning when empty.
func (e *Egress) Run(ctx context.Context) {
	const idleSleep = 10 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		alert, ok := e.ring.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleSleep):
			}
			continue
		}

		if err := e.notifier.Send(ctx, alert); err != nil {
			e.log.Error("notification send failed", "alert_id", alert.AlertID, "error", err)
		}
	}
}
