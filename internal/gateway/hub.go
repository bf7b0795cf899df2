package gateway

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"

	"github.com/Datta-sai-vvn/StormAlert/internal/model"
)

// Hub manages WebSocket clients and fans out alerts delivered by
// PubSubRouter. Each connected client is scoped to exactly one userID;
// an alert is only ever written to the clients belonging to its owner.
type Hub struct {
	Rdb *goredis.Client

	mu          sync.RWMutex
	clients     map[*Client]bool
	latest      map[string]latestEntry   // keyed by userID: most recent alert envelope
	channelSeqs map[string]int64         // keyed by userID: per-user sequence counter
	replayBufs  map[string]*ReplayBuffer // keyed by userID
	seq         int64

	Latency *LatencyTracker
}

type latestEntry struct {
	Data []byte
	TS   time.Time
	Seq  int64
}

// NewHub creates a Hub ready to accept WS connections and deliver alerts.
func NewHub(rdb *goredis.Client) *Hub {
	return &Hub{
		Rdb:         rdb,
		clients:     make(map[*Client]bool),
		latest:      make(map[string]latestEntry),
		channelSeqs: make(map[string]int64),
		replayBufs:  make(map[string]*ReplayBuffer),
		Latency:     NewLatencyTracker(10000),
	}
}

// Deliver fans an alert out to every connected client owned by
// alert.UserID, hand-crafting the envelope the same way the original
// candle/indicator pub-sub path did, and records it for gap backfill.
func (h *Hub) Deliver(alert model.AlertRecord) {
	now := time.Now().UTC()
	if latencyMs := float64(now.Sub(alert.FiredAt).Microseconds()) / 1000.0; latencyMs >= 0 {
		h.Latency.Record(latencyMs)
	}

	dto := AlertDTO{
		AlertID:        alert.AlertID,
		Token:          alert.Token,
		Exchange:       alert.Exchange,
		TradingSymbol:  alert.TradingSymbol,
		Kind:           string(alert.Kind),
		Algo:           alert.Algo.String(),
		Price:          alert.Price,
		ReferencePrice: alert.ReferencePrice,
		ChangePct:      alert.ChangePct,
		Message:        alert.Message,
		FiredAt:        alert.FiredAt.UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(dto)
	if err != nil {
		log.Printf("[gateway] alert marshal error: %v", err)
		return
	}

	h.mu.Lock()
	h.seq++
	globalSeq := h.seq
	h.channelSeqs[alert.UserID]++
	userSeq := h.channelSeqs[alert.UserID]
	h.mu.Unlock()

	buf := make([]byte, 0, len(data)+160)
	buf = append(buf, `{"type":"ALERT_NEW","alert":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, globalSeq, 10)
	buf = append(buf, `,"user_seq":`...)
	buf = strconv.AppendInt(buf, userSeq, 10)
	buf = append(buf, '}')

	h.mu.Lock()
	h.latest[alert.UserID] = latestEntry{Data: buf, TS: now, Seq: userSeq}
	h.mu.Unlock()

	h.replayBufferFor(alert.UserID).Push(userSeq, buf)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.userID != alert.UserID {
			continue
		}
		select {
		case client.send <- buf:
		default:
		}
	}
}

// replayBufferFor returns the per-user replay buffer, creating it on
// first use.
func (h *Hub) replayBufferFor(userID string) *ReplayBuffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	rb, ok := h.replayBufs[userID]
	if !ok {
		rb = NewReplayBuffer(500)
		h.replayBufs[userID] = rb
	}
	return rb
}

// HandleWSRequest upgrades an authenticated connection and registers the
// resulting Client scoped to userID.
func (h *Hub) HandleWSRequest(conn *websocket.Conn, userID string, lastSeq int64) {
	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		hub:    h,
		userID: userID,
	}

	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected: user=%s (%d total)", userID, total)

	ack, _ := json.Marshal(ConnAckDTO{Type: "CONNECTED", UserID: userID})
	select {
	case client.send <- ack:
	default:
	}

	go client.sendInitialState(lastSeq)
	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetReplayRange returns buffered envelopes for userID between seqs.
func (h *Hub) GetReplayRange(userID string, fromSeq, toSeq int64) []replayEntry {
	return h.replayBufferFor(userID).Range(fromSeq, toSeq)
}

// GetUserSeq returns the current per-user sequence counter.
func (h *Hub) GetUserSeq(userID string) int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.channelSeqs[userID]
}

// StartMetricsBroadcast sends system metrics to all WS clients periodically.
func (h *Hub) StartMetricsBroadcast(ctx context.Context, start time.Time) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := CollectMetrics(start)
			p50, p95, p99 := h.Latency.Percentiles()
			envelope, _ := json.Marshal(map[string]interface{}{
				"type":          "metrics",
				"metrics":       m,
				"latency_p50":   p50,
				"latency_p95":   p95,
				"latency_p99":   p99,
				"client_count":  h.ClientCount(),
			})
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- envelope:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}
