package gateway

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

const (
	alertBroadcastChannel = "stormalert:alerts:broadcast"
	defaultPublishTimeout = 2 * time.Second
)

// Broadcaster is the model.Broadcaster the engine's sink lane publishes
// into. It never talks to WebSocket clients directly: it publishes the
// alert once to Redis so that every gateway process (there may be
// several behind a load balancer) receives it and fans it out to its
// own locally-connected clients via PubSubRouter.
type Broadcaster struct {
	rdb *goredis.Client
}

// NewBroadcaster creates a Broadcaster backed by rdb.
func NewBroadcaster(rdb *goredis.Client) *Broadcaster {
	return &Broadcaster{rdb: rdb}
}

// PublishAlert implements model.Broadcaster.
func (b *Broadcaster) PublishAlert(alert model.AlertRecord) {
	data, err := json.Marshal(alert)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()
	b.rdb.Publish(ctx, alertBroadcastChannel, data)
}
