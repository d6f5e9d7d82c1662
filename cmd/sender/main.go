package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"wavespush/internal/config"
	"wavespush/internal/fcm"
	"wavespush/internal/repository"
	"wavespush/internal/sender"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[sender] load configuration: %v", err)
	}
	if err := cfg.ValidateSender(); err != nil {
		log.Fatalf("[sender] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(ctx, cfg.Postgres.DSN(), cfg.Postgres.ConnectionTimeout)
	if err != nil {
		log.Fatalf("[sender] connect to postgres: %v", err)
	}
	defer repo.Close()

	gateway := fcm.NewClient(cfg.FCMAPIKey, cfg.Send.ClickAction, cfg.Send.DryRun)

	if err := sender.New(repo, gateway, cfg.Send).Run(ctx); err != nil {
		log.Fatalf("[sender] %v", err)
	}
	log.Println("[sender] stopped")
}
