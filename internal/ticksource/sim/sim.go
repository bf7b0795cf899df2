// Package sim is a simulated model.TickSource that generates synthetic
// ticks for local development and tests, standing in for the real
// credential-bearing upstream feed client (declared out of scope).
// Adapted from the teacher's wssim package: same reconnect-free
// streaming-into-a-channel shape, but generating ticks locally with a
// random walk instead of dialing a WebSocket server.
package sim

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// Config controls the synthetic tick generator.
type Config struct {
	Exchange   string
	TickPeriod time.Duration // how often every subscribed token ticks
	Volatility float64       // max fractional price move per tick, e.g. 0.002
}

func (c *Config) defaults() {
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.TickPeriod <= 0 {
		c.TickPeriod = 500 * time.Millisecond
	}
	if c.Volatility <= 0 {
		c.Volatility = 0.002
	}
}

// Adapter implements model.TickSource, generating a random-walk price
// per subscribed token on a fixed period.
type Adapter struct {
	cfg Config
	rng *rand.Rand

	mu     sync.Mutex
	prices map[string]float64
}

// New creates a simulated tick source. Subscribe must be called
// before Run to seed any starting tokens, though Subscribe/Unsubscribe
// may also be called while Run is streaming.
func New(cfg Config, seed int64) *Adapter {
	cfg.defaults()
	return &Adapter{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		prices: make(map[string]float64),
	}
}

// Subscribe implements model.TickSource. New tokens start at a
// pseudo-random base price in a plausible equity range.
func (a *Adapter) Subscribe(tokens []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, tok := range tokens {
		if _, ok := a.prices[tok]; ok {
			continue
		}
		a.prices[tok] = 50 + a.rng.Float64()*2000
	}
	return nil
}

// Unsubscribe implements model.TickSource.
func (a *Adapter) Unsubscribe(tokens []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, tok := range tokens {
		delete(a.prices, tok)
	}
	return nil
}

// Restart implements model.TickSource. The simulated source has no
// real session to re-establish, so this is a no-op that just logs.
func (a *Adapter) Restart(ctx context.Context, accessToken string) error {
	log.Println("[ticksource/sim] restart requested (no-op: simulated source has no session)")
	return nil
}

// Run streams synthetic ticks for every currently subscribed token
// into out until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context, out chan<- model.Tick) error {
	ticker := time.NewTicker(a.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.emitAll(ctx, out)
		}
	}
}

func (a *Adapter) emitAll(ctx context.Context, out chan<- model.Tick) {
	a.mu.Lock()
	tokens := make([]string, 0, len(a.prices))
	for tok := range a.prices {
		tokens = append(tokens, tok)
	}
	a.mu.Unlock()

	now := time.Now().UTC()
	for _, tok := range tokens {
		a.mu.Lock()
		price, ok := a.prices[tok]
		if !ok {
			a.mu.Unlock()
			continue
		}
		move := (a.rng.Float64()*2 - 1) * a.cfg.Volatility
		price = price * (1 + move)
		if price < 0.01 {
			price = 0.01
		}
		a.prices[tok] = price
		a.mu.Unlock()

		tick := model.Tick{
			Token:     tok,
			Exchange:  a.cfg.Exchange,
			LastPrice: price,
			TickTS:    now,
		}

		select {
		case out <- tick:
		case <-ctx.Done():
			return
		}
	}
}
