// Command stormalert-watchdog runs the token watchdog (C7) as its own
// process, independent of stormalert-engine, so the expiry check keeps
// running (and paging) even if the main engine process is down or
// being redeployed. It has no authority to restart the engine
// directly; it logs the near-expiry event so an operator or an
// external orchestrator (systemd, Kubernetes liveness probe) can act.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Datta-sai-vvn/StormAlert/internal/config"
	"github.com/Datta-sai-vvn/StormAlert/internal/logger"
	storemongo "github.com/Datta-sai-vvn/StormAlert/internal/store/mongo"
	"github.com/Datta-sai-vvn/StormAlert/internal/tokenwatch"
)

// loggingRestarter stands in for the engine process this watchdog does
// not have a handle on: it records the near-expiry event at warning
// level instead of performing a restart itself.
type loggingRestarter struct {
	log *slog.Logger
}

func (r loggingRestarter) Restart(ctx context.Context, accessToken string) error {
	r.log.Warn("tick source session nearing expiry; engine restart must be triggered out of process")
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[stormalert-watchdog] starting...")

	cfg := config.Load()
	lg := logger.Init("stormalert-watchdog", slog.LevelInfo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	store, err := storemongo.New(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("[stormalert-watchdog] mongo connect failed: %v", err)
	}
	defer store.Close(context.Background())

	watchdog := tokenwatch.New(store, loggingRestarter{log: lg}, cfg.TokenCheckInterval, cfg.TokenExpiryLead, lg)
	go watchdog.Run(ctx)

	log.Println("[stormalert-watchdog] polling tick source session expiry")

	<-sigCh
	log.Println("[stormalert-watchdog] shutdown signal received, cleaning up...")
	cancel()
}
