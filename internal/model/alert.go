package model

import (
	"time"

	"github.com/google/uuid"
)

// AlertKind distinguishes a dip (price fell through the user's
// threshold) from a spike (price rose through it).
type AlertKind string

const (
	AlertDip   AlertKind = "DIP"
	AlertSpike AlertKind = "SPIKE"
)

// AlertRecord is a single fired alert, ready for persistence,
// broadcast, and notification fan-out. ChangePct is always a
// non-negative magnitude; Kind carries the direction.
type AlertRecord struct {
	AlertID        string    `json:"alert_id" bson:"alert_id"`
	UserID         string    `json:"user_id" bson:"user_id"`
	Token          string    `json:"token" bson:"token"`
	Exchange       string    `json:"exchange" bson:"exchange"`
	TradingSymbol  string    `json:"trading_symbol" bson:"trading_symbol"`
	Kind           AlertKind `json:"kind" bson:"kind"`
	Algo           AlgoMode  `json:"algo" bson:"algo"`
	Price          float64   `json:"price" bson:"price"`
	ReferencePrice float64   `json:"reference_price" bson:"reference_price"`
	ChangePct      float64   `json:"change_pct" bson:"change_pct"`
	Message        string    `json:"message" bson:"message"`
	FiredAt        time.Time `json:"fired_at" bson:"fired_at"`
}

// NewAlertID mints a fresh alert identifier.
func NewAlertID() string {
	return uuid.NewString()
}

// CooldownKey identifies a (user, instrument, kind) triple for
// suppressing repeat alerts within the user's cooldown window.
type CooldownKey struct {
	UserID string
	Token  string
	Kind   AlertKind
}
