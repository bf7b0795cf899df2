package tokenwatch

import (
	"context"
	"testing"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

type fakeStore struct {
	tok model.SystemTokenState
}

func (f *fakeStore) LoadAllSettings(ctx context.Context) ([]model.UserSettings, error) { return nil, nil }
func (f *fakeStore) LoadActiveStocks(ctx context.Context) ([]model.Instrument, error)  { return nil, nil }
func (f *fakeStore) BulkInsertAlerts(ctx context.Context, alerts []model.AlertRecord) error {
	return nil
}
func (f *fakeStore) DeleteAlertsOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	return 0, nil
}
func (f *fakeStore) LoadSystemToken(ctx context.Context) (model.SystemTokenState, error) {
	return f.tok, nil
}
func (f *fakeStore) SaveSystemToken(ctx context.Context, tok model.SystemTokenState) error {
	return nil
}
func (f *fakeStore) Close(ctx context.Context) error { return nil }

type fakeRestarter struct {
	restarted bool
}

func (r *fakeRestarter) Restart(ctx context.Context, accessToken string) error {
	r.restarted = true
	return nil
}

func TestWatchdog_RestartsWhenNearExpiry(t *testing.T) {
	store := &fakeStore{tok: model.SystemTokenState{
		ExpiresAt: time.Now().Add(2 * time.Minute),
	}}
	restarter := &fakeRestarter{}
	w := New(store, restarter, time.Hour, 5*time.Minute, nil)

	w.checkOnce(context.Background())

	if !restarter.restarted {
		t.Error("expected restart to be triggered when token is within the expiry lead window")
	}
}

func TestWatchdog_NoRestartWhenFarFromExpiry(t *testing.T) {
	store := &fakeStore{tok: model.SystemTokenState{
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	restarter := &fakeRestarter{}
	w := New(store, restarter, time.Hour, 5*time.Minute, nil)

	w.checkOnce(context.Background())

	if restarter.restarted {
		t.Error("restart should not trigger when token is not near expiry")
	}
}

func TestWatchdog_NoRestartWhenTokenUnset(t *testing.T) {
	store := &fakeStore{}
	restarter := &fakeRestarter{}
	w := New(store, restarter, time.Hour, 5*time.Minute, nil)

	w.checkOnce(context.Background())

	if restarter.restarted {
		t.Error("restart should not trigger when no token has ever been stored")
	}
}
