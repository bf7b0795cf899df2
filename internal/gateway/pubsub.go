package gateway

import (
	"context"
	"encoding/json"
	"log"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// PubSubRouter subscribes to the Redis channel that every gateway
// instance's Broadcaster publishes into, and hands each alert to the
// local Hub for client fan-out.
type PubSubRouter struct {
	hub *Hub
}

// NewPubSubRouter creates a PubSubRouter backed by the given Hub.
func NewPubSubRouter(hub *Hub) *PubSubRouter {
	return &PubSubRouter{hub: hub}
}

// Run subscribes and routes until ctx is cancelled.
func (r *PubSubRouter) Run(ctx context.Context) {
	pubsub := r.hub.Rdb.Subscribe(ctx, alertBroadcastChannel)
	defer pubsub.Close()

	log.Printf("[gateway] subscribed to %s", alertBroadcastChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var alert model.AlertRecord
			if err := json.Unmarshal([]byte(msg.Payload), &alert); err != nil {
				log.Printf("[gateway] malformed alert on pubsub: %v", err)
				continue
			}
			r.hub.Deliver(alert)
		}
	}
}
