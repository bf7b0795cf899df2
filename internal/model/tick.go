package model

import "time"

// Tick represents a single market data tick from the upstream feed.
// Price is a float64 in rupees; the upstream feed does not expose
// paise-level precision for the instruments this engine watches.
type Tick struct {
	Token     string    `json:"token"`
	Exchange  string    `json:"exchange"`
	LastPrice float64   `json:"last_price"`
	TickTS    time.Time `json:"tick_ts"`            // UTC arrival timestamp
	EventTS   time.Time `json:"event_ts,omitempty"` // exchange-provided canonical time
}

// CanonicalTS returns the best available timestamp for this tick.
// Prefers the exchange-provided EventTS; falls back to TickTS (arrival time).
func (t *Tick) CanonicalTS() time.Time {
	if !t.EventTS.IsZero() {
		return t.EventTS
	}
	return t.TickTS
}

// Valid reports whether the tick carries a usable token and a
// non-negative price. Ingress drops ticks that fail this check.
func (t *Tick) Valid() bool {
	return t.Token != "" && t.LastPrice >= 0
}

// Key returns a unique key for this tick's instrument: "exchange:token".
func (t *Tick) Key() string {
	return t.Exchange + ":" + t.Token
}
