package evaluator

import (
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
	"github.com/Datta-sai-vvn/StormAlert/internal/windowing"
)

// Evaluator turns a tick plus its routed subscriber list into zero or
// more fired alerts. It owns the windowing core and the cooldown map;
// both are single-goroutine state, mutated only from the engine's
// pipeline consumer.
type Evaluator struct {
	core       *windowing.Core
	cooldowns  *cooldowns
	suppressed uint64
}

// New creates an evaluator backed by the given windowing core.
func New(core *windowing.Core) *Evaluator {
	return &Evaluator{core: core, cooldowns: newCooldowns()}
}

// Suppressed returns the number of threshold crossings suppressed by
// an active cooldown window, for the persistence-buffer-adjacent
// alerts_suppressed_by_cooldown metric.
func (e *Evaluator) Suppressed() uint64 {
	return e.suppressed
}

// Evaluate folds tick into the windowing core for every subscriber
// watching its instrument and returns the alerts that clear both their
// threshold and their cooldown. now is passed explicitly so tests can
// control cooldown timing deterministically.
func (e *Evaluator) Evaluate(tick model.Tick, watch *model.StockWatch, now time.Time) []model.AlertRecord {
	if watch == nil || len(watch.Subscribers) == 0 {
		return nil
	}

	var alerts []model.AlertRecord
	for _, sub := range watch.Subscribers {
		s := sub.Settings
		res := e.core.Evaluate(s.UserID, tick.Token, s.Algo, s.WindowMinutes, tick.LastPrice, tick.CanonicalTS())

		if res.DipPct >= s.DipThresholdPct && s.DipThresholdPct > 0 {
			if alert, ok := e.fire(s, tick, res.DipPct, model.AlertDip, now); ok {
				alerts = append(alerts, alert)
			}
		}
		if res.SpikePct >= s.SpikeThresholdPct && s.SpikeThresholdPct > 0 {
			if alert, ok := e.fire(s, tick, res.SpikePct, model.AlertSpike, now); ok {
				alerts = append(alerts, alert)
			}
		}
	}
	return alerts
}

func (e *Evaluator) fire(s *model.UserSettings, tick model.Tick, changePct float64, kind model.AlertKind, now time.Time) (model.AlertRecord, bool) {
	key := model.CooldownKey{UserID: s.UserID, Token: s.Token, Kind: kind}
	window := time.Duration(s.CooldownSeconds) * time.Second

	if e.cooldowns.active(key, now, window) {
		e.suppressed++
		return model.AlertRecord{}, false
	}
	e.cooldowns.record(key, now)

	return model.AlertRecord{
		AlertID:       model.NewAlertID(),
		UserID:        s.UserID,
		Token:         s.Token,
		Exchange:      s.Exchange,
		TradingSymbol: s.TradingSymbol,
		Kind:          kind,
		Algo:          s.Algo,
		Price:         tick.LastPrice,
		ChangePct:     changePct,
		Message:       renderMessage(s.TradingSymbol, tick.LastPrice, changePct, kind),
		FiredAt:       now,
	}, true
}
