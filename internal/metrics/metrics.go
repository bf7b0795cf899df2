package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus counters and gauges the alerting engine
// exposes on /metrics.
type Metrics struct {
	TotalTicks                 prometheus.Counter
	DroppedTicks                prometheus.Counter
	MalformedTicks              prometheus.Counter
	AlertsEmitted               *prometheus.CounterVec // labels: kind (DIP|SPIKE)
	AlertsSuppressedByCooldown  prometheus.Counter
	MonitoredUsers              prometheus.Gauge
	MonitoredInstruments        prometheus.Gauge
	PersistenceBufferDepth      prometheus.Gauge

	PersistenceFlushDur prometheus.Histogram
	SpoolWritesTotal    prometheus.Counter

	StoreCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	StoreCircuitBreakerTrips prometheus.Counter

	NotificationDropsTotal prometheus.Counter
	BroadcastDropsTotal    prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TotalTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormalert_total_ticks",
			Help: "Total ticks accepted by ingress",
		}),
		DroppedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormalert_dropped_ticks",
			Help: "Batches dropped by ingress due to a full queue",
		}),
		MalformedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormalert_malformed_ticks",
			Help: "Ticks skipped by ingress for failing validation",
		}),
		AlertsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stormalert_alerts_emitted",
			Help: "Total alerts fired, by kind",
		}, []string{"kind"}),
		AlertsSuppressedByCooldown: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormalert_alerts_suppressed_by_cooldown",
			Help: "Threshold crossings suppressed by an active cooldown window",
		}),
		MonitoredUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stormalert_monitored_users",
			Help: "Distinct active users with at least one subscription",
		}),
		MonitoredInstruments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stormalert_monitored_instruments",
			Help: "Distinct instruments with at least one active subscriber",
		}),
		PersistenceBufferDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stormalert_persistence_buffer_depth",
			Help: "Alert records currently buffered awaiting the next store flush",
		}),
		PersistenceFlushDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stormalert_persistence_flush_duration_seconds",
			Help:    "Store.BulkInsertAlerts latency per flush",
			Buckets: prometheus.DefBuckets,
		}),
		SpoolWritesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormalert_spool_writes_total",
			Help: "Alert batches spilled to the local SQLite spool while the store breaker is open",
		}),
		StoreCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stormalert_store_circuit_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		StoreCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormalert_store_circuit_breaker_trips_total",
			Help: "Times the store circuit breaker tripped open",
		}),
		NotificationDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormalert_notification_drops_total",
			Help: "Alerts dropped by the notification egress because its queue was full",
		}),
		BroadcastDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stormalert_broadcast_drops_total",
			Help: "Alerts dropped on the push channel because a client's send buffer was full",
		}),
	}

	prometheus.MustRegister(
		m.TotalTicks,
		m.DroppedTicks,
		m.MalformedTicks,
		m.AlertsEmitted,
		m.AlertsSuppressedByCooldown,
		m.MonitoredUsers,
		m.MonitoredInstruments,
		m.PersistenceBufferDepth,
		m.PersistenceFlushDur,
		m.SpoolWritesTotal,
		m.StoreCircuitBreakerState,
		m.StoreCircuitBreakerTrips,
		m.NotificationDropsTotal,
		m.BroadcastDropsTotal,
	)

	return m
}

// HealthStatus represents the system health, polled by the /healthz
// endpoint and updated by the engine's own liveness checks.
type HealthStatus struct {
	mu sync.RWMutex

	TickSourceConnected bool      `json:"tick_source_connected"`
	LastTickTime        time.Time `json:"last_tick_time"`
	StoreConnected      bool      `json:"store_connected"`
	CacheRefresherOK    bool      `json:"cache_refresher_ok"`

	StoreLatencyMs float64   `json:"store_latency_ms"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetTickSourceConnected(v bool) {
	h.mu.Lock()
	h.TickSourceConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetCacheRefresherOK(v bool) {
	h.mu.Lock()
	h.CacheRefresherOK = v
	h.mu.Unlock()
}

// CheckStore pings Redis (used by the gateway's pub/sub fan-out) and
// records latency + connectivity. The Mongo store is checked
// separately via its own circuit breaker state.
func (h *HealthStatus) CheckStore(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.StoreConnected = err == nil
	h.StoreLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckStore(probeCtx, rdb)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.TickSourceConnected || !h.StoreConnected {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.StoreConnected && !h.CacheRefresherOK {
		overallStatus = "unhealthy"
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status              string  `json:"status"`
		Uptime              string  `json:"uptime"`
		TickSourceConnected bool    `json:"tick_source_connected"`
		LastTickTime        string  `json:"last_tick_time"`
		TickAge             string  `json:"tick_age"`
		StoreConnected      bool    `json:"store_connected"`
		StoreLatencyMs      float64 `json:"store_latency_ms"`
		CacheRefresherOK    bool    `json:"cache_refresher_ok"`
		LastCheckAt         string  `json:"last_check_at"`
	}{
		Status:              overallStatus,
		Uptime:              time.Since(h.StartedAt).Round(time.Second).String(),
		TickSourceConnected: h.TickSourceConnected,
		LastTickTime:        h.LastTickTime.Format(time.RFC3339),
		TickAge:             tickAge,
		StoreConnected:      h.StoreConnected,
		StoreLatencyMs:      h.StoreLatencyMs,
		CacheRefresherOK:    h.CacheRefresherOK,
		LastCheckAt:         h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
