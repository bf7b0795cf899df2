package evaluator

import (
	"fmt"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// renderMessage builds the user-facing alert text, matching the
// exact phrasing and emoji the engine has always used for dip/spike
// alerts.
func renderMessage(symbol string, price, changePct float64, kind model.AlertKind) string {
	var emoji, action, phrase string
	switch kind {
	case model.AlertDip:
		emoji = "📉"
		action = "Price Dropped"
		phrase = "This stock has dropped significantly! Act accordingly."
	case model.AlertSpike:
		emoji = "📈"
		action = "Price Spiked"
		phrase = "Momentum is building up! Fast."
	}

	return fmt.Sprintf(
		"🚨 *StormAlert: %s*\n%s *%s:* %.2f%%\n💰 *Current Price:* ₹%.2f\n_%s_",
		symbol, emoji, action, changePct, price, phrase,
	)
}
