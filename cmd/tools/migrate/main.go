package main

import (
	"context"
	"flag"
	"log"

	"wavespush/internal/config"
	"wavespush/internal/repository"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	drop := flag.Bool("drop", false, "drop all tables before migrating (destroys data)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[migrate] load configuration: %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("[migrate] %v", err)
	}

	ctx := context.Background()
	repo, err := repository.New(ctx, cfg.Postgres.DSN(), cfg.Postgres.ConnectionTimeout)
	if err != nil {
		log.Fatalf("[migrate] connect to postgres: %v", err)
	}
	defer repo.Close()

	if *drop {
		log.Println("[migrate] dropping existing schema")
	}
	if err := repo.Migrate(ctx, *drop); err != nil {
		log.Fatalf("[migrate] %v", err)
	}
	log.Println("[migrate] schema is up to date")
}
