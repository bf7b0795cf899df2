package evaluator

import (
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// cooldowns tracks the last fired time per (user, instrument, kind)
// triple. It is only ever touched from the evaluator's single
// pipeline goroutine, so a plain map suffices — no locking.
type cooldowns struct {
	last map[model.CooldownKey]time.Time
}

func newCooldowns() *cooldowns {
	return &cooldowns{last: make(map[model.CooldownKey]time.Time, 256)}
}

// active reports whether key is still within its cooldown window as
// of now.
func (c *cooldowns) active(key model.CooldownKey, now time.Time, window time.Duration) bool {
	last, ok := c.last[key]
	if !ok {
		return false
	}
	return now.Sub(last) < window
}

// record marks key as having just fired at now.
func (c *cooldowns) record(key model.CooldownKey, now time.Time) {
	c.last[key] = now
}
