package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"wavespush/internal/api"
	"wavespush/internal/config"
	"wavespush/internal/models"
	"wavespush/internal/repository"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[api] load configuration: %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("[api] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(ctx, cfg.Postgres.DSN(), cfg.Postgres.ConnectionTimeout)
	if err != nil {
		log.Fatalf("[api] connect to postgres: %v", err)
	}
	defer repo.Close()

	limits := models.SubscriptionLimits{
		MaxPerPair: cfg.Limits.MaxSubscriptionsPerPair,
		MaxTotal:   cfg.Limits.MaxSubscriptionsTotal,
	}
	server := api.NewServer(repo, limits, cfg.Send.MaxAttempts, cfg.API)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[api] listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("[api] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[api] warning: shutdown: %v", err)
	}
}
