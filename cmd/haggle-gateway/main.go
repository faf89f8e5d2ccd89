package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"haggle.local/haggle-gateway/internal/broker"
	"haggle.local/haggle-gateway/internal/config"
	"haggle.local/haggle-gateway/internal/db"
	"haggle.local/haggle-gateway/internal/dispatch"
	"haggle.local/haggle-gateway/internal/history"
	"haggle.local/haggle-gateway/internal/httpapi"
	"haggle.local/haggle-gateway/internal/subscribers"
	"haggle.local/haggle-gateway/internal/subscribers/discord"
	logging "haggle.local/haggle-gateway/internal/subscribers/logging"
	"haggle.local/haggle-gateway/internal/subscribers/webhook"
)

func main() {
	logger := log.New(os.Stdout, "haggle ", log.Ldate|log.Ltime|log.Lmicroseconds|log.LUTC)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	subs := []subscribers.Subscriber{logging.New(logger)}
	if cfg.WebhookURL != "" {
		subs = append(subs, webhook.New("webhook", cfg.WebhookURL, logger))
	}
	if cfg.DiscordBotToken != "" {
		discordSub, err := discord.NewFromToken(cfg.DiscordBotToken, cfg.DiscordChannelID)
		if err != nil {
			logger.Fatalf("failed to initialize discord subscriber: %v", err)
		}
		subs = append(subs, discordSub)
	}
	dispatcher := dispatch.New(logger, subs)

	// Session and history rows share one database handle.
	gormDB, err := db.OpenGorm(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}

	sessionStore, err := broker.NewGormStoreFrom(gormDB)
	if err != nil {
		logger.Fatalf("failed to initialize session store: %v", err)
	}
	defer func() {
		if err := sessionStore.Close(); err != nil {
			logger.Printf("session store close error: %v", err)
		}
	}()

	historyStore, err := history.NewGormStoreFrom(gormDB)
	if err != nil {
		logger.Fatalf("failed to initialize history store: %v", err)
	}

	historyWriter := history.NewWriter(logger, historyStore, cfg.HistoryQueueSize)
	defer historyWriter.Close()

	service := broker.NewService(
		logger,
		sessionStore,
		broker.WithDispatcher(dispatcher),
		broker.WithHistory(historyWriter),
		broker.WithOutcomes(history.NewOutcomeSource(historyStore)),
	)
	srv := httpapi.NewServer(logger, cfg.HTTPAddr, service)

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server crashed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("shutdown error: %v", err)
	}
	logger.Printf("shutdown complete")
}
