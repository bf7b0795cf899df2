package router

import (
	"sync/atomic"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// Table routes an incoming tick's instrument token to its subscriber
// list in O(1), with zero lock contention on the hot read path. The
// cache refresher publishes a full replacement snapshot; readers
// always see either the old or the new snapshot, never a partial one.
type Table struct {
	snapshot atomic.Pointer[map[string]*model.StockWatch]
}

// NewTable returns an empty table ready to serve Lookups before the
// first refresh completes.
func NewTable() *Table {
	t := &Table{}
	empty := make(map[string]*model.StockWatch)
	t.snapshot.Store(&empty)
	return t
}

// Publish atomically replaces the entire routing snapshot. Safe to
// call concurrently with Lookup from the ingest pipeline.
func (t *Table) Publish(watches map[string]*model.StockWatch) {
	t.snapshot.Store(&watches)
}

// Lookup returns the StockWatch for a routing key ("exchange:token"),
// or nil if no subscriber currently watches it.
func (t *Table) Lookup(token string) *model.StockWatch {
	m := *t.snapshot.Load()
	return m[token]
}

// Tokens returns every routing key ("exchange:token") currently in the
// snapshot; the engine maps these back to instrument tokens before
// subscribing the tick source.
func (t *Table) Tokens() []string {
	m := *t.snapshot.Load()
	tokens := make([]string, 0, len(m))
	for tok := range m {
		tokens = append(tokens, tok)
	}
	return tokens
}

// Len reports how many distinct instruments are currently routed.
func (t *Table) Len() int {
	return len(*t.snapshot.Load())
}
