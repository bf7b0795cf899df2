package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
	"github.com/Datta-sai-vvn/StormAlert/internal/router"
	"github.com/Datta-sai-vvn/StormAlert/internal/windowing"
)

type fakeStore struct {
	settings []model.UserSettings
	alerts   []model.AlertRecord
}

func (f *fakeStore) LoadAllSettings(ctx context.Context) ([]model.UserSettings, error) {
	return f.settings, nil
}
func (f *fakeStore) LoadActiveStocks(ctx context.Context) ([]model.Instrument, error) { return nil, nil }
func (f *fakeStore) BulkInsertAlerts(ctx context.Context, alerts []model.AlertRecord) error {
	f.alerts = append(f.alerts, alerts...)
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

func TestRefresher_BuildsWatchesFromActiveSettings(t *testing.T) {
	store := &fakeStore{settings: []model.UserSettings{
		{UserID: "u1", Token: "1", Exchange: "NSE", Algo: model.AlgoTrailing, Active: true},
		{UserID: "u2", Token: "1", Exchange: "NSE", Algo: model.AlgoTrailing, Active: true},
		{UserID: "u3", Token: "2", Exchange: "NSE", Algo: model.AlgoTrailing, Active: false},
	}}
	tbl := router.NewTable()
	core := windowing.NewCore()
	r := NewRefresher(store, tbl, core, 0, nil)

	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce: %v", err)
	}

	w := tbl.Lookup("NSE:1")
	if w == nil || len(w.Subscribers) != 2 {
		t.Fatalf("expected 2 subscribers for NSE:1, got %+v", w)
	}
	if tbl.Lookup("NSE:2") != nil {
		t.Errorf("inactive setting should not produce a watch")
	}
}

func TestRefresher_InvalidatesChangedWindowLength(t *testing.T) {
	store := &fakeStore{settings: []model.UserSettings{
		{UserID: "u1", Token: "1", Exchange: "NSE", Algo: model.AlgoRollingWindow, WindowMinutes: 10, Active: true},
	}}
	tbl := router.NewTable()
	core := windowing.NewCore()
	r := NewRefresher(store, tbl, core, 0, nil)

	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce: %v", err)
	}

	now := time.Now()
	// seed rolling state under the 10-minute bucket with a high peak
	core.Evaluate("u1", "1", model.AlgoRollingWindow, 10, 500, now)

	// user changes window length to 20; the 10-minute bucket should be
	// invalidated, so re-evaluating at 10 minutes must reseed (dip 0)
	// instead of reporting a dip against the stale 500 peak.
	store.settings[0].WindowMinutes = 20
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce: %v", err)
	}

	res := core.Evaluate("u1", "1", model.AlgoRollingWindow, 10, 100, now)
	if res.DipPct != 0 {
		t.Errorf("dip = %v, want 0 after window-length invalidation reseeds the bucket", res.DipPct)
	}
}
