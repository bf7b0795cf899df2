package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
	"github.com/Datta-sai-vvn/StormAlert/internal/sink"
)

type fakeStore struct {
	mu       sync.Mutex
	settings []model.UserSettings
	inserted []model.AlertRecord
}

func (f *fakeStore) LoadAllSettings(ctx context.Context) ([]model.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, nil
}
func (f *fakeStore) LoadActiveStocks(ctx context.Context) ([]model.Instrument, error) { return nil, nil }
func (f *fakeStore) BulkInsertAlerts(ctx context.Context, alerts []model.AlertRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, alerts...)
	return nil
}
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

func (f *fakeStore) insertedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

// fakeSource streams a scripted sequence of ticks once Run is called,
// then idles until ctx is cancelled.
type fakeSource struct {
	ticks        []model.Tick
	subscribed   []string
	restartCalls int
}

func (s *fakeSource) Subscribe(tokens []string) error {
	s.subscribed = append(s.subscribed, tokens...)
	return nil
}
func (s *fakeSource) Unsubscribe(tokens []string) error { return nil }
func (s *fakeSource) Restart(ctx context.Context, accessToken string) error {
	s.restartCalls++
	return nil
}
func (s *fakeSource) Run(ctx context.Context, out chan<- model.Tick) error {
	for _, tick := range s.ticks {
		select {
		case out <- tick:
		case <-ctx.Done():
			return nil
		}
	}
	<-ctx.Done()
	return nil
}

func TestEngine_TickTriggersAlertThroughToStore(t *testing.T) {
	store := &fakeStore{
		settings: []model.UserSettings{
			{
				UserID: "u1", Token: "99926000", Exchange: "NSE", TradingSymbol: "NIFTY",
				Algo: model.AlgoTrailing, DipThresholdPct: 5, CooldownSeconds: 60, Active: true,
			},
		},
	}
	source := &fakeSource{
		ticks: []model.Tick{
			{Token: "99926000", Exchange: "NSE", LastPrice: 100, TickTS: time.Now()},
			{Token: "99926000", Exchange: "NSE", LastPrice: 90, TickTS: time.Now()},
		},
	}

	snk := sink.New(store, nil, nil, nil, sink.Config{FlushPeriod: 10 * time.Millisecond}, nil)
	eng := New(Config{CacheRefreshInterval: time.Hour, RetentionInterval: time.Hour}, nil, source, store, snk, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()
	<-done

	if store.insertedCount() != 1 {
		t.Fatalf("expected 1 alert persisted, got %d", store.insertedCount())
	}
	if len(source.subscribed) == 0 {
		t.Error("expected the tick source to be subscribed to at least one token")
	}
}

func TestEngine_PrefsLookupFindsSubscriberAfterRefresh(t *testing.T) {
	store := &fakeStore{
		settings: []model.UserSettings{
			{
				UserID: "u1", Token: "1", Exchange: "NSE", TradingSymbol: "X",
				Algo: model.AlgoTrailing, Active: true,
				Notify: model.NotificationPrefs{Email: true, EmailAddress: "u1@example.com"},
			},
		},
	}
	source := &fakeSource{}
	snk := sink.New(store, nil, nil, nil, sink.Config{}, nil)
	eng := New(Config{}, nil, source, store, snk, nil, nil)

	if err := eng.refresher.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce: %v", err)
	}

	prefs, ok := eng.PrefsLookup("u1")
	if !ok {
		t.Fatal("expected to find prefs for u1")
	}
	if !prefs.Email || prefs.EmailAddress != "u1@example.com" {
		t.Errorf("unexpected prefs: %+v", prefs)
	}

	if _, ok := eng.PrefsLookup("nobody"); ok {
		t.Error("expected no prefs for unknown user")
	}
}

func TestEngine_RestartDelegatesToSource(t *testing.T) {
	store := &fakeStore{}
	source := &fakeSource{}
	snk := sink.New(store, nil, nil, nil, sink.Config{}, nil)
	eng := New(Config{}, nil, source, store, snk, nil, nil)

	if err := eng.Restart(context.Background(), "tok"); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if source.restartCalls != 1 {
		t.Errorf("restart calls = %d, want 1", source.restartCalls)
	}
}
