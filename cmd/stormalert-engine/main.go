// Command stormalert-engine is the config-and-wiring entrypoint (C0):
// it loads configuration, constructs every collaborator (store, spool,
// push fabric, notification channels, tick source), wires them into
// the engine, and runs until a shutdown signal arrives.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/Datta-sai-vvn/StormAlert/internal/config"
	"github.com/Datta-sai-vvn/StormAlert/internal/engine"
	"github.com/Datta-sai-vvn/StormAlert/internal/gateway"
	"github.com/Datta-sai-vvn/StormAlert/internal/logger"
	"github.com/Datta-sai-vvn/StormAlert/internal/metrics"
	"github.com/Datta-sai-vvn/StormAlert/internal/model"
	"github.com/Datta-sai-vvn/StormAlert/internal/notification"
	"github.com/Datta-sai-vvn/StormAlert/internal/sink"
	storemongo "github.com/Datta-sai-vvn/StormAlert/internal/store/mongo"
	"github.com/Datta-sai-vvn/StormAlert/internal/store/spool"
	"github.com/Datta-sai-vvn/StormAlert/internal/ticksource/sim"
	"github.com/Datta-sai-vvn/StormAlert/internal/tokenwatch"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[stormalert-engine] starting...")

	cfg := config.Load()
	lg := logger.Init("stormalert-engine", slog.LevelInfo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Mongo document store ----
	store, err := storemongo.New(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("[stormalert-engine] mongo connect failed: %v", err)
	}
	defer store.Close(context.Background())

	// ---- SQLite dead-letter spool ----
	spl, err := spool.Open(cfg.SpoolPath)
	if err != nil {
		log.Fatalf("[stormalert-engine] spool open failed: %v", err)
	}
	defer spl.Close()

	// ---- Redis: push fabric + notification queue ----
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	redisOK := rdb.Ping(pingCtx).Err() == nil
	pingCancel()
	if !redisOK {
		log.Printf("[stormalert-engine] redis unreachable at %s, broadcaster/notification queue disabled", cfg.RedisAddr)
	}

	var broadcaster model.Broadcaster
	var hub *gateway.Hub
	var pubsub *gateway.PubSubRouter
	if redisOK {
		broadcaster = gateway.NewBroadcaster(rdb)
		hub = gateway.NewHub(rdb)
		pubsub = gateway.NewPubSubRouter(hub)
	}

	// ---- Notification channels ----
	var telegram *notification.TelegramNotifier
	if cfg.TelegramToken != "" {
		telegram = notification.NewTelegramNotifier(cfg.TelegramToken, lg)
	}
	var email *notification.EmailNotifier
	if cfg.SMTPUser != "" {
		email = notification.NewEmailNotifier(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort), cfg.SMTPUser, cfg.SMTPPassword, lg)
	}
	var whatsapp *notification.WhatsAppNotifier
	if cfg.WhatsAppSID != "" {
		whatsapp = notification.NewWhatsAppNotifier(cfg.WhatsAppSID, cfg.WhatsAppToken, cfg.WhatsAppFrom, lg)
	}

	// eng is assigned after construction; prefsLookup closes over the
	// pointer so Fanout can be built before the engine exists.
	var eng *engine.Engine
	prefsLookup := func(userID string) (model.NotificationPrefs, bool) {
		if eng == nil {
			return model.NotificationPrefs{}, false
		}
		return eng.PrefsLookup(userID)
	}

	var notifyQueue *goredis.Client
	if redisOK {
		notifyQueue = rdb
	}

	var notifier model.Notifier
	if telegram == nil && email == nil && whatsapp == nil {
		log.Println("[stormalert-engine] no notification channel credentials configured, logging alerts instead")
		notifier = notification.NewLogNotifier(lg)
	} else {
		notifier = notification.NewFanout(prefsLookup, telegram, email, whatsapp, notifyQueue, lg)
	}
	egress := notification.NewEgress(cfg.NotificationQueueCap, notifier, lg)

	// ---- Metrics and health ----
	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetCacheRefresherOK(true)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()
	defer metricsSrv.Stop(context.Background())
	if redisOK {
		go health.StartLivenessChecker(ctx, rdb, 10*time.Second)
	}

	// ---- Sink: persistence + broadcast + notification lanes ----
	snk := sink.New(store, broadcaster, egress, spl, sink.Config{
		FlushSize:   cfg.PersistenceFlushSize,
		BufferCap:   cfg.PersistenceBufferCap,
		FlushPeriod: cfg.PersistenceFlushPeriod,
	}, lg)

	// ---- Tick source: simulated market feed ----
	source := sim.New(sim.Config{}, time.Now().UnixNano())

	eng = engine.New(engine.Config{
		IngressCapacity:      cfg.IngressCapacity,
		CacheRefreshInterval: cfg.CacheRefreshInterval,
		RetentionInterval:    cfg.RetentionInterval,
		RetentionMaxAge:      cfg.RetentionMaxAge,
	}, lg, source, store, snk, m, health)

	watchdog := tokenwatch.New(store, eng, cfg.TokenCheckInterval, cfg.TokenExpiryLead, lg)

	go egress.Run(ctx)
	go watchdog.Run(ctx)
	if pubsub != nil {
		go pubsub.Run(ctx)
	}

	// ---- Gateway HTTP/WS server ----
	if hub != nil {
		mux := http.NewServeMux()
		gateway.RegisterRoutes(mux, hub, rdb, []byte(cfg.JWTSecret), time.Now())
		gwSrv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}
		go func() {
			log.Printf("[stormalert-engine] gateway listening on %s", cfg.GatewayAddr)
			if err := gwSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[stormalert-engine] gateway server error: %v", err)
			}
		}()
		defer gwSrv.Shutdown(context.Background())
	}

	go func() {
		if err := eng.Run(ctx); err != nil {
			log.Printf("[stormalert-engine] engine terminated: %v", err)
		}
	}()

	log.Println("[stormalert-engine] pipeline ready")

	<-sigCh
	log.Println("[stormalert-engine] shutdown signal received, cleaning up...")
	cancel()
	time.Sleep(250 * time.Millisecond)
}
