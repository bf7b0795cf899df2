package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

// allowedOrigins holds the configured allowed origins, parsed from ALLOWED_ORIGINS env var.
// Default "*" allows all origins (for development). Set to comma-separated origins in production.
var allowedOrigins = parseAllowedOrigins(os.Getenv("ALLOWED_ORIGINS"))

func parseAllowedOrigins(s string) []string {
	if s == "" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func checkOrigin(r *http.Request) bool {
	for _, o := range allowedOrigins {
		if o == "*" {
			return true
		}
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser requests
	}
	for _, o := range allowedOrigins {
		if o == origin {
			return true
		}
	}
	log.Printf("[gateway] rejected WS origin: %s", origin)
	return false
}

var upgrader = websocket.Upgrader{
	CheckOrigin:       checkOrigin,
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	origin := "*"
	for _, o := range allowedOrigins {
		if o != "*" {
			origin = strings.Join(allowedOrigins, ", ")
			break
		}
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, rdb *goredis.Client, jwtSecret []byte, processStart time.Time) {
	// WebSocket endpoint — requires a valid bearer token (header or ?token=).
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		userID, err := bearerUserID(r, jwtSecret)
		if err != nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}

		lastSeq := int64(0)
		if s := r.URL.Query().Get("last_seq"); s != "" {
			if v, err := strconv.ParseInt(s, 10, 64); err == nil {
				lastSeq = v
			}
		}
		hub.HandleWSRequest(conn, userID, lastSeq)
	})

	// REST: gap backfill — returns buffered alert envelopes for the
	// caller's own user channel between from_seq and to_seq.
	mux.HandleFunc("/api/alerts/missed", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		userID, err := bearerUserID(r, jwtSecret)
		if err != nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		fromStr := r.URL.Query().Get("from_seq")
		toStr := r.URL.Query().Get("to_seq")
		if fromStr == "" || toStr == "" {
			http.Error(w, `{"error":"from_seq and to_seq are required"}`, http.StatusBadRequest)
			return
		}
		fromSeq, err := strconv.ParseInt(fromStr, 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid from_seq"}`, http.StatusBadRequest)
			return
		}
		toSeq, err := strconv.ParseInt(toStr, 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid to_seq"}`, http.StatusBadRequest)
			return
		}

		envelopes := hub.GetReplayRange(userID, fromSeq, toSeq)
		rawEnvelopes := make([]json.RawMessage, len(envelopes))
		for i, e := range envelopes {
			rawEnvelopes[i] = json.RawMessage(e.Data)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"current_seq": hub.GetUserSeq(userID),
			"count":       len(rawEnvelopes),
			"messages":    rawEnvelopes,
		})
	})

	// REST: system metrics snapshot
	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(CollectMetrics(processStart))
	})

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.Header().Set("Content-Type", "application/json")

		redisOK := true
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			redisOK = false
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "ok",
			"redis":      redisOK,
			"ws_clients": hub.ClientCount(),
			"uptime_sec": int64(time.Since(processStart).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
