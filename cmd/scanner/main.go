package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohamedkhairy/pattern-scanner/internal/api"
	"github.com/mohamedkhairy/pattern-scanner/internal/config"
	"github.com/mohamedkhairy/pattern-scanner/internal/data"
	"github.com/mohamedkhairy/pattern-scanner/internal/feed"
	"github.com/mohamedkhairy/pattern-scanner/internal/pubsub"
	"github.com/mohamedkhairy/pattern-scanner/internal/scanner"
	"github.com/mohamedkhairy/pattern-scanner/internal/session"
	"github.com/mohamedkhairy/pattern-scanner/internal/storage"
	"github.com/mohamedkhairy/pattern-scanner/internal/throttle"
	"github.com/mohamedkhairy/pattern-scanner/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting pattern scanner",
		logger.Int("watchlist_size", len(cfg.Engine.Watchlist)),
		logger.String("interval", cfg.Engine.Interval),
		logger.Int("workers", cfg.Engine.WorkerCount),
	)

	redisClient, err := pubsub.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Redis connection failed", logger.ErrorField(err))
	}
	defer redisClient.Close()

	var store storage.SignalStore
	if cfg.Database.Host != "" {
		pgStore, err := storage.NewPostgresSignalStore(cfg.Database)
		if err != nil {
			logger.Fatal("Signal store initialization failed", logger.ErrorField(err))
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		logger.Warn("No database configured, signal persistence disabled")
	}

	classifier := session.NewClassifier(cfg.Session, cfg.Engine.Timezone)
	signalThrottle := throttle.New(cfg.Throttle, classifier.Location())
	indicators := data.NewLocalIndicatorProvider(cfg.Confluence.EMAPeriods)
	account := data.NewStaticAccount(cfg.Risk.AccountEquity)

	pipeline := scanner.NewPipeline(cfg, indicators, account, signalThrottle)
	publisher := pubsub.NewSignalPublisher(redisClient, store, cfg.Redis.SignalStream)
	candleFeed := feed.NewWebSocketFeed(cfg.Feed)

	engine := scanner.NewEngine(cfg, pipeline, classifier, candleFeed, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		logger.Fatal("Engine start failed", logger.ErrorField(err))
	}

	handler := api.NewHandler(engine, store)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.API.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Operational API listening", logger.Int("port", cfg.API.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server failed", logger.ErrorField(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down pattern scanner")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("API shutdown failed", logger.ErrorField(err))
	}

	engine.Stop()
}
