package router

import (
	"testing"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

func TestTable_EmptyLookup(t *testing.T) {
	tb := NewTable()
	if w := tb.Lookup("NSE:1"); w != nil {
		t.Fatalf("expected nil lookup on empty table, got %+v", w)
	}
}

func TestTable_PublishThenLookup(t *testing.T) {
	tb := NewTable()
	watches := map[string]*model.StockWatch{
		"NSE:1": {Token: "1", Exchange: "NSE", Subscribers: []model.Subscriber{
			{UserID: "u1", Settings: &model.UserSettings{UserID: "u1", Token: "1"}},
		}},
	}
	tb.Publish(watches)

	w := tb.Lookup("NSE:1")
	if w == nil {
		t.Fatalf("expected watch for NSE:1, got nil")
	}
	if len(w.Subscribers) != 1 || w.Subscribers[0].UserID != "u1" {
		t.Errorf("unexpected subscribers: %+v", w.Subscribers)
	}

	if w := tb.Lookup("NSE:2"); w != nil {
		t.Errorf("expected nil for unrouted token, got %+v", w)
	}
}

func TestTable_PublishReplacesPreviousSnapshot(t *testing.T) {
	tb := NewTable()
	tb.Publish(map[string]*model.StockWatch{"NSE:1": {Token: "1"}})
	tb.Publish(map[string]*model.StockWatch{"NSE:2": {Token: "2"}})

	if w := tb.Lookup("NSE:1"); w != nil {
		t.Errorf("old snapshot entry should be gone after republish")
	}
	if w := tb.Lookup("NSE:2"); w == nil {
		t.Errorf("new snapshot entry should be present")
	}
}

func TestTable_TokensAndLen(t *testing.T) {
	tb := NewTable()
	tb.Publish(map[string]*model.StockWatch{
		"NSE:1": {Token: "1"},
		"NSE:2": {Token: "2"},
	})
	if tb.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tb.Len())
	}
	toks := tb.Tokens()
	if len(toks) != 2 {
		t.Errorf("Tokens() returned %d entries, want 2", len(toks))
	}
}
