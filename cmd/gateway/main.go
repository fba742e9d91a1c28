package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/api"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/bookfeed"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/content"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/hub"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/repository"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/session"
	"github.com/Muhsin-Gun/aurora/pkg/config"
	"github.com/Muhsin-Gun/aurora/pkg/models"
	"github.com/Muhsin-Gun/aurora/pkg/orderbook"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	logger, err := config.NewLogger(cfg.App)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting gateway service", zap.String("port", cfg.App.Port))

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := repository.NewRedisStore(rdb)
	defer store.Close()

	validTickers := make(map[string]bool, len(cfg.Gateway.ValidTickers))
	for _, t := range cfg.Gateway.ValidTickers {
		validTickers[t] = true
	}

	// The hub and the book feed reference each other: the hub tells the
	// feed which symbols to watch, the feed pushes finished ladders back
	// through the hub. The closure breaks the construction cycle.
	var wsHub *hub.Hub
	gen := orderbook.New(cfg.Book.Depth, cfg.Book.Spread, cfg.Book.Step,
		rand.New(rand.NewSource(time.Now().UnixNano())))
	feed := bookfeed.New(
		logger,
		store,
		gen,
		cfg.Book.TickInterval,
		func(symbol string, book models.OrderBook) { wsHub.BroadcastBook(symbol, book) },
	)
	wsHub = hub.NewHub(store, feed, logger)

	sessions := session.NewManager(cfg.Session)

	contentClient := content.NewClient(
		logger,
		cfg.Content.BaseURL,
		content.StaticKey(cfg.Content.APIKey),
		cfg.Content.PollInterval,
		cfg.Content.MaxPolls,
	)

	handler := api.NewHandler(logger, store, sessions, contentClient, wsHub, validTickers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.App.Port,
		Handler: handler.Router(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, draining connections")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	logger.Info("Gateway stopped")
}
