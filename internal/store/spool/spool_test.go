package spool

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

func openTestSpool(t *testing.T) *Spool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spool.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSpool_WriteAndDrain(t *testing.T) {
	s := openTestSpool(t)

	alerts := []model.AlertRecord{
		{AlertID: "a1", UserID: "u1", Token: "99926000", Kind: model.AlertDip, FiredAt: time.Now()},
		{AlertID: "a2", UserID: "u2", Token: "99926009", Kind: model.AlertSpike, FiredAt: time.Now()},
	}
	if err := s.Write(alerts); err != nil {
		t.Fatalf("Write: %v", err)
	}

	depth, err := s.Depth()
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if depth != 2 {
		t.Fatalf("depth = %d, want 2", depth)
	}

	drained, err := s.Drain(10)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(drained) != 2 {
		t.Fatalf("drained = %d, want 2", len(drained))
	}
	if drained[0].Alert.AlertID != "a1" || drained[1].Alert.AlertID != "a2" {
		t.Errorf("drain order not oldest-first: got %v", drained)
	}
}

func TestSpool_DeleteRemovesRow(t *testing.T) {
	s := openTestSpool(t)

	if err := s.Write([]model.AlertRecord{{AlertID: "a1", FiredAt: time.Now()}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	drained, err := s.Drain(10)
	if err != nil || len(drained) != 1 {
		t.Fatalf("Drain: %v, %d rows", err, len(drained))
	}

	if err := s.Delete(drained[0].RowID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	depth, err := s.Depth()
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if depth != 0 {
		t.Fatalf("depth after delete = %d, want 0", depth)
	}
}

func TestSpool_WriteEmptyIsNoop(t *testing.T) {
	s := openTestSpool(t)
	if err := s.Write(nil); err != nil {
		t.Fatalf("Write(nil): %v", err)
	}
	depth, _ := s.Depth()
	if depth != 0 {
		t.Fatalf("depth = %d, want 0", depth)
	}
}
