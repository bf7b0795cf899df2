package model

// Instrument identifies a tradeable equity instrument watched by the
// engine. Token is the upstream feed's opaque subscription token;
// TradingSymbol is the human-readable name used in alert messages.
type Instrument struct {
	Token         string `json:"token"`
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"trading_symbol"`
}

// Key returns a unique key for this instrument: "exchange:token".
func (i *Instrument) Key() string {
	return i.Exchange + ":" + i.Token
}
