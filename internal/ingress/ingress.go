package ingress

import (
	"sync/atomic"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// Ingress is the single entry point for tick batches arriving from the
// upstream feed adapter. It never blocks the caller: enqueue hands the
// batch to a bounded channel, and once that channel is full the oldest
// queued batch is evicted to make room, rather than rejecting the new
// one or blocking the adapter's I/O goroutine.
type Ingress struct {
	ch        chan []model.Tick
	dropped   atomic.Uint64
	malformed atomic.Uint64
}

// New creates an ingress queue with room for capacity batches.
func New(capacity int) *Ingress {
	if capacity < 1 {
		capacity = 1
	}
	return &Ingress{ch: make(chan []model.Tick, capacity)}
}

// Enqueue validates every tick in batch, drops the malformed ones, and
// hands the surviving ticks to the internal queue. Non-blocking: if
// the queue is full, the oldest queued batch is discarded first.
func (in *Ingress) Enqueue(batch []model.Tick) {
	clean := make([]model.Tick, 0, len(batch))
	for _, t := range batch {
		if t.Valid() {
			clean = append(clean, t)
		} else {
			in.malformed.Add(1)
		}
	}
	if len(clean) == 0 {
		return
	}

	for {
		select {
		case in.ch <- clean:
			return
		default:
			select {
			case <-in.ch:
				in.dropped.Add(1)
			default:
				// consumer just drained it; retry the send
			}
		}
	}
}

// C returns the channel the engine's pipeline consumer reads batches
// from.
func (in *Ingress) C() <-chan []model.Tick {
	return in.ch
}

// Depth reports how many batches are currently queued.
func (in *Ingress) Depth() int {
	return len(in.ch)
}

// Dropped returns the number of batches evicted due to a full queue.
func (in *Ingress) Dropped() uint64 {
	return in.dropped.Load()
}

// Malformed returns the number of ticks rejected by Enqueue for
// failing validation.
func (in *Ingress) Malformed() uint64 {
	return in.malformed.Load()
}
