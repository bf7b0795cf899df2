package notification

import (
	"context"
	"log/slog"
	"testing"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

func TestFanout_NoPrefsIsNoop(t *testing.T) {
	f := NewFanout(func(userID string) (model.NotificationPrefs, bool) {
		return model.NotificationPrefs{}, false
	}, nil, nil, nil, nil, slog.Default())

	if err := f.Send(context.Background(), model.AlertRecord{UserID: "u1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFanout_AllChannelsDisabledIsNoop(t *testing.T) {
	f := NewFanout(func(userID string) (model.NotificationPrefs, bool) {
		return model.NotificationPrefs{}, true
	}, nil, nil, nil, nil, slog.Default())

	if err := f.Send(context.Background(), model.AlertRecord{UserID: "u1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
