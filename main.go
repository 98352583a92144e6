package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/option-signal-feed/internal/alerting"
	"github.com/option-signal-feed/internal/api"
	"github.com/option-signal-feed/internal/broadcast"
	"github.com/option-signal-feed/internal/config"
	"github.com/option-signal-feed/internal/ingestion"
	"github.com/option-signal-feed/internal/logger"
	"github.com/option-signal-feed/internal/session"
	"github.com/option-signal-feed/internal/settings"
	"github.com/option-signal-feed/internal/siglog"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalw("failed to load configuration", "error", err)
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		logger.Fatalw("failed to initialize logger", "error", err)
	}
	defer logger.Sync()
	log := logger.Get().With("component", "main")
	log.Infow("starting option signal feed", "env", cfg.App.Env)

	var tokens ingestion.TokenSource
	if cfg.Upstream.TokenPath != "" {
		tokens = ingestion.FileTokenSource{Path: cfg.Upstream.TokenPath}
	} else {
		tokens = ingestion.StaticTokenSource(os.Getenv("FEED_UPSTREAM_TOKEN"))
	}
	fetcher := ingestion.NewClient(cfg.Upstream, tokens)

	settingsStore := settings.NewMemoryStore()
	signalLog := siglog.NewMemory(1000)
	hub := broadcast.NewHub(time.Duration(cfg.Broadcast.HeartbeatSecs) * time.Second)
	events := make(chan session.SignalEvent, 100)

	sessions := session.NewStore(fetcher, settingsStore, signalLog, hub, events,
		cfg.Poll, cfg.Market, cfg.Session)

	alertManager := alerting.NewManager(cfg.Alerting, events)
	apiServer := api.NewServer(cfg.API, sessions, settingsStore, signalLog, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sessions.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorw("session store error", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := alertManager.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorw("alert manager error", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Run(ctx); err != nil {
			log.Errorw("api server error", "error", err)
			cancel()
		}
	}()

	log.Infow("all components started")

	<-sigChan
	log.Infow("shutting down")
	cancel()
	wg.Wait()
	log.Infow("shutdown complete")
}
