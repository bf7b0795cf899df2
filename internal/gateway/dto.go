package gateway

// AlertDTO is the wire shape of an alert pushed to a subscribed client.
type AlertDTO struct {
	AlertID        string  `json:"alert_id"`
	Token          string  `json:"token"`
	Exchange       string  `json:"exchange"`
	TradingSymbol  string  `json:"trading_symbol"`
	Kind           string  `json:"kind"`
	Algo           string  `json:"algo"`
	Price          float64 `json:"price"`
	ReferencePrice float64 `json:"reference_price"`
	ChangePct      float64 `json:"change_pct"`
	Message        string  `json:"message"`
	FiredAt        string  `json:"fired_at"`
}

// ConnAckDTO is sent immediately after a WS upgrade succeeds.
type ConnAckDTO struct {
	Type   string `json:"type"` // "CONNECTED"
	UserID string `json:"user_id"`
}

// ErrorDTO is the server → client ERROR message.
type ErrorDTO struct {
	Type  string `json:"type"` // "ERROR"
	Error string `json:"error"`
}
