package main

import (
	"context"
	"flag"
	"log"

	"wavespush/internal/config"
	"wavespush/internal/repository"
)

// Resets exhausted messages (send_attempts_count at the cap) so the sender
// picks them up again, optionally for a single device.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	device := flag.Int("device", 0, "only requeue messages of this device uid (0 = all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[requeue] load configuration: %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("[requeue] %v", err)
	}

	ctx := context.Background()
	repo, err := repository.New(ctx, cfg.Postgres.DSN(), cfg.Postgres.ConnectionTimeout)
	if err != nil {
		log.Fatalf("[requeue] connect to postgres: %v", err)
	}
	defer repo.Close()

	count, err := repo.RequeueExhausted(ctx, cfg.Send.MaxAttempts, *device)
	if err != nil {
		log.Fatalf("[requeue] %v", err)
	}
	log.Printf("[requeue] requeued %d message(s)", count)
}
