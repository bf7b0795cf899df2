package notification

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.AlertRecord
}

func (r *recordingNotifier) Send(ctx context.Context, alert model.AlertRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, alert)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestEgress_DeliversEnqueuedAlert(t *testing.T) {
	rec := &recordingNotifier{}
	eg := NewEgress(8, rec, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eg.Run(ctx)

	if !eg.Enqueue(model.AlertRecord{AlertID: "a1"}) {
		t.Fatalf("enqueue should succeed on empty queue")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rec.count() == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("notifier never received the enqueued alert")
}

func TestEgress_DropsOnFullQueue(t *testing.T) {
	// capacity rounds up to 2; fill it before starting the drain loop.
	eg := NewEgress(2, &recordingNotifier{}, slog.Default())

	eg.Enqueue(model.AlertRecord{AlertID: "a1"})
	eg.Enqueue(model.AlertRecord{AlertID: "a2"})
	if eg.Enqueue(model.AlertRecord{AlertID: "a3"}) {
		t.Fatalf("expected enqueue to fail on a full queue")
	}
	if eg.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", eg.Dropped())
	}
}
