package sink

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
	"github.com/Datta-sai-vvn/StormAlert/internal/store/spool"
)

func openTestSpool(t *testing.T) *spool.Spool {
	t.Helper()
	s, err := spool.Open(filepath.Join(t.TempDir(), "spool.db"))
	if err != nil {
		t.Fatalf("spool.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeStore struct {
	mu       sync.Mutex
	inserted []model.AlertRecord
	failNext bool
	failAll  bool
}

func (f *fakeStore) LoadAllSettings(ctx context.Context) ([]model.UserSettings, error) { return nil, nil }
func (f *fakeStore) LoadActiveStocks(ctx context.Context) ([]model.Instrument, error)  { return nil, nil }
func (f *fakeStore) DeleteAlertsOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	return 0, nil
}
func (f *fakeStore) LoadSystemToken(ctx context.Context) (model.SystemTokenState, error) {
	return model.SystemTokenState{}, nil
}
func (f *fakeStore) SaveSystemToken(ctx context.Context, tok model.SystemTokenState) error {
	return nil
}
func (f *fakeStore) Close(ctx context.Context) error { return nil }

func (f *fakeStore) BulkInsertAlerts(ctx context.Context, alerts []model.AlertRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll || f.failNext {
		f.failNext = false
		return errors.New("store unavailable")
	}
	f.inserted = append(f.inserted, alerts...)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

type fakeBroadcaster struct {
	mu        sync.Mutex
	published []model.AlertRecord
}

func (b *fakeBroadcaster) PublishAlert(alert model.AlertRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, alert)
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

func TestSink_EmitBuffersAndFlushes(t *testing.T) {
	store := &fakeStore{}
	bc := &fakeBroadcaster{}
	s := New(store, bc, nil, nil, Config{FlushSize: 10, FlushPeriod: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		s.Emit(model.AlertRecord{AlertID: model.NewAlertID(), Kind: model.AlertDip})
	}

	if s.BufferDepth() != 3 {
		t.Fatalf("buffer depth = %d, want 3", s.BufferDepth())
	}
	if bc.count() != 3 {
		t.Fatalf("broadcast count = %d, want 3", bc.count())
	}

	s.FlushTick(context.Background())

	if s.BufferDepth() != 0 {
		t.Fatalf("buffer depth after flush = %d, want 0", s.BufferDepth())
	}
	if store.count() != 3 {
		t.Fatalf("store count after flush = %d, want 3", store.count())
	}
}

func TestSink_ShedsOldestWhenBufferFull(t *testing.T) {
	store := &fakeStore{}
	s := New(store, nil, nil, nil, Config{FlushSize: 100, FlushPeriod: time.Minute, BufferCap: 2}, nil)

	s.Emit(model.AlertRecord{AlertID: "a1"})
	s.Emit(model.AlertRecord{AlertID: "a2"})
	s.Emit(model.AlertRecord{AlertID: "a3"})

	if s.BufferDepth() != 2 {
		t.Fatalf("buffer depth = %d, want 2", s.BufferDepth())
	}
	if s.Shed() != 1 {
		t.Fatalf("shed count = %d, want 1", s.Shed())
	}
	if s.buf[0].AlertID != "a2" {
		t.Errorf("oldest surviving alert = %s, want a2", s.buf[0].AlertID)
	}
}

func TestSink_FlushFailureSpillsToSpoolAndReplays(t *testing.T) {
	spl := openTestSpool(t)
	store := &fakeStore{failNext: true}
	s := New(store, nil, nil, spl, Config{FlushSize: 10, FlushPeriod: time.Minute, MaxFailures: 5}, nil)

	s.Emit(model.AlertRecord{AlertID: "a1"})
	s.FlushTick(context.Background())

	if store.count() != 0 {
		t.Fatalf("store should not have received the failed batch, got %d", store.count())
	}
	depth, err := spl.Depth()
	if err != nil {
		t.Fatalf("spool Depth: %v", err)
	}
	if depth != 1 {
		t.Fatalf("spool depth = %d, want 1", depth)
	}

	// next flush with a healthy store should replay the spooled alert
	s.FlushTick(context.Background())
	if store.count() != 1 {
		t.Fatalf("store count after replay = %d, want 1", store.count())
	}
	depth, _ = spl.Depth()
	if depth != 0 {
		t.Fatalf("spool depth after replay = %d, want 0", depth)
	}
}
