package model

import "context"

// ── External Collaborator Interfaces ──
// These decouple the engine's core logic from concrete infrastructure
// (MongoDB, the gateway hub, outbound notification senders, the
// upstream tick feed). Each concrete package in internal/store,
// internal/gateway, internal/notification, and internal/ticksource
// satisfies one or more of these.

// Store is the persistent document store backing settings, alert
// history, and system token state.
type Store interface {
	// LoadAllSettings returns every user setting row, active or not,
	// used by the cache refresher (which skips inactive rows) to
	// rebuild the subscription snapshot.
	LoadAllSettings(ctx context.Context) ([]UserSettings, error)

	// LoadActiveStocks returns the distinct set of instruments that
	// have at least one active subscriber.
	LoadActiveStocks(ctx context.Context) ([]Instrument, error)

	// BulkInsertAlerts persists a batch of fired alerts in one round
	// trip. Must be safe to call with an empty slice.
	BulkInsertAlerts(ctx context.Context, alerts []AlertRecord) error

	// DeleteAlertsOlderThan purges alert history past the retention
	// window and returns the number of rows removed.
	DeleteAlertsOlderThan(ctx context.Context, cutoffUnixSeconds int64) (int64, error)

	// LoadSystemToken returns the currently stored upstream session
	// token, or a zero-value SystemTokenState if none is stored.
	LoadSystemToken(ctx context.Context) (SystemTokenState, error)

	// SaveSystemToken persists a refreshed upstream session token.
	SaveSystemToken(ctx context.Context, tok SystemTokenState) error

	// Close releases underlying resources.
	Close(ctx context.Context) error
}

// Broadcaster fans a fired alert out to connected push clients.
type Broadcaster interface {
	// PublishAlert pushes an alert onto the live channel. Must not
	// block on slow or disconnected clients.
	PublishAlert(alert AlertRecord)
}

// Notifier delivers a fired alert over an external notification
// channel (email, WhatsApp, Telegram, ...). Implementations own their
// own retry policy; Send should return promptly or respect ctx.
type Notifier interface {
	Send(ctx context.Context, alert AlertRecord) error
}

// TickSource is the upstream live market data feed. The engine treats
// credential exchange and reconnect policy as entirely the source's
// concern; it only consumes ticks and can request a session restart.
type TickSource interface {
	// Run streams ticks into out until ctx is cancelled or the source
	// fails unrecoverably.
	Run(ctx context.Context, out chan<- Tick) error

	// Subscribe adds instrument tokens to the live feed subscription.
	Subscribe(tokens []string) error

	// Unsubscribe removes instrument tokens from the live feed.
	Unsubscribe(tokens []string) error

	// Restart re-establishes the upstream session using a freshly
	// issued access token, re-subscribing to the current token set.
	Restart(ctx context.Context, accessToken string) error
}
