package windowing

import (
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// Result is the composed dip/spike reading for one tick against one
// subscriber's configured algorithm mode.
type Result struct {
	DipPct   float64
	SpikePct float64
}

// Core runs the Trailing and Rolling-Window algorithms side by side,
// keyed per instrument token, and composes them per subscriber
// AlgoMode. A single Core instance is shared by every subscriber of an
// instrument; Trailing state is naturally shared, Rolling state is
// keyed additionally by user id and window length.
//
// Designed for single-goroutine use from the evaluator's pipeline
// consumer — no internal locking.
type Core struct {
	trailing *Trailing
	rolling  *Rolling
}

// NewCore creates an empty windowing core.
func NewCore() *Core {
	return &Core{
		trailing: NewTrailing(),
		rolling:  NewRolling(),
	}
}

// Evaluate folds price into whichever trackers mode requires and
// returns the composed result. For AlgoBoth, dip and spike are each
// the max magnitude reported by either algorithm, per the spec's
// max-composition rule. Trailing state is shared across every
// subscriber of token (it is keyed solely by instrument); rolling
// state is additionally keyed by userID, since the window length and
// its in-window history are owned per user.
func (c *Core) Evaluate(userID, token string, mode model.AlgoMode, windowMinutes int, price float64, ts time.Time) Result {
	var res Result

	if mode.UsesTrailing() {
		dip, spike := c.trailing.Update(token, price)
		res.DipPct, res.SpikePct = dip, spike
	}

	if mode.UsesRolling() {
		dip, spike := c.rolling.Update(userID, token, windowMinutes, price, ts)
		if dip > res.DipPct {
			res.DipPct = dip
		}
		if spike > res.SpikePct {
			res.SpikePct = spike
		}
	}

	return res
}

// InvalidateWindow drops one user's rolling-window state for a token
// under a window length that user no longer uses, so stale deques
// don't linger forever. It never affects any other subscriber of the
// same instrument. Safe to call even if no such state exists.
func (c *Core) InvalidateWindow(userID, token string, windowMinutes int) {
	c.rolling.Invalidate(userID, token, windowMinutes)
}

// Drop removes all tracked state — trailing and every rolling window —
// for a token that has lost its last subscriber.
func (c *Core) Drop(token string) {
	c.trailing.Reset(token)
	c.rolling.InvalidateToken(token)
}
