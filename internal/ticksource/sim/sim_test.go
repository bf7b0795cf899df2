package sim

import (
	"context"
	"testing"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

func TestAdapter_SubscribeThenRunEmitsTicks(t *testing.T) {
	a := New(Config{TickPeriod: 5 * time.Millisecond}, 42)
	if err := a.Subscribe([]string{"99926000", "99926009"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	out := make(chan model.Tick, 16)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		a.Run(ctx, out)
		close(done)
	}()
	<-done

	seen := map[string]bool{}
	for {
		select {
		case tick := <-out:
			if !tick.Valid() {
				t.Errorf("emitted invalid tick: %+v", tick)
			}
			seen[tick.Token] = true
		default:
			if len(seen) != 2 {
				t.Fatalf("expected ticks for both subscribed tokens, saw %v", seen)
			}
			return
		}
	}
}

func TestAdapter_UnsubscribeStopsTicksForToken(t *testing.T) {
	a := New(Config{TickPeriod: time.Millisecond}, 7)
	a.Subscribe([]string{"A", "B"})
	a.Unsubscribe([]string{"A"})

	out := make(chan model.Tick, 64)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	a.Run(ctx, out)
	close(out)

	for tick := range out {
		if tick.Token == "A" {
			t.Fatalf("received tick for unsubscribed token A")
		}
	}
}
