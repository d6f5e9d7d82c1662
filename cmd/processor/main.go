package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"wavespush/internal/assets"
	"wavespush/internal/chain"
	"wavespush/internal/config"
	"wavespush/internal/dataservice"
	"wavespush/internal/eventbus"
	"wavespush/internal/ingester"
	"wavespush/internal/localizer"
	"wavespush/internal/models"
	"wavespush/internal/processor"
	"wavespush/internal/repository"
)

// storeAdapter narrows *repository.Repository to the processor's Store
// interface; BeginEventTx returns a concrete type, Begin an interface.
type storeAdapter struct {
	repo *repository.Repository
}

func (a storeAdapter) Begin(ctx context.Context) (processor.EventTx, error) {
	return a.repo.BeginEventTx(ctx)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[processor] load configuration: %v", err)
	}
	if err := cfg.ValidateProcessor(); err != nil {
		log.Fatalf("[processor] %v", err)
	}

	matcher, err := models.ParseAddress(cfg.MatcherAddress)
	if err != nil {
		log.Fatalf("[processor] MATCHER_ADDRESS: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(ctx, cfg.Postgres.DSN(), cfg.Postgres.ConnectionTimeout)
	if err != nil {
		log.Fatalf("[processor] connect to postgres: %v", err)
	}
	defer repo.Close()

	// Translations are loaded once at start-up; gaps are survivable because
	// rendering falls back to English.
	lokalise := localizer.NewLokaliseClient(cfg.Lokalise.APIURL, cfg.Lokalise.Token, cfg.Lokalise.ProjectID)
	table, err := lokalise.FetchTable(ctx)
	if err != nil {
		log.Fatalf("[processor] fetch translations: %v", err)
	}
	loc := localizer.New()
	loc.Load(table)
	for _, gap := range loc.Missing(localizer.RequiredKeys) {
		log.Printf("[processor] warning: missing translation %s", gap)
	}
	log.Printf("[processor] translations loaded: languages=%v", loc.Languages())

	tickers := assets.NewTickerCache(assets.NewClient(cfg.AssetsServiceURL), assets.DefaultTickerTTL)

	data := dataservice.NewClient(cfg.DataServiceURL)
	startingHeight, err := ingester.ResolveStartingHeight(ctx, cfg.StartingHeight, data, matcher)
	if err != nil {
		log.Fatalf("[processor] %v", err)
	}
	log.Printf("[processor] starting height: %d", startingHeight)

	prices, err := data.LastPairPrices(ctx)
	if err != nil {
		log.Fatalf("[processor] fetch last pair prices: %v", err)
	}
	aggregators := ingester.NewAggregatorSet()
	aggregators.Seed(prices)
	log.Printf("[processor] aggregators seeded: pairs=%d", aggregators.Size())

	network := config.Network()
	chainClient, err := chain.NewClient(cfg.BlockchainUpdatesURL, network.ChainID)
	if err != nil {
		log.Fatalf("[processor] connect to blockchain updates: %v", err)
	}
	defer chainClient.Close()

	stream, err := chainClient.Subscribe(ctx, startingHeight)
	if err != nil {
		log.Fatalf("[processor] subscribe to blockchain updates: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
	})
	defer rdb.Close()

	bus := eventbus.New(eventbus.DefaultCapacity)
	pump := processor.New(bus, storeAdapter{repo: repo}, loc, tickers)
	blockchainIngester := ingester.NewBlockchainIngester(stream, bus, aggregators, matcher)
	ordersIngester := ingester.NewOrdersIngester(rdb, cfg.Redis, bus)

	var wg sync.WaitGroup
	run := func(name string, worker func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := worker(ctx); err != nil {
				log.Printf("[processor] %s stopped: %v", name, err)
			}
			// One worker down means the pipeline cannot make progress.
			stop()
		}()
	}

	run("pump", pump.Run)
	run("blockchain ingester", blockchainIngester.Run)
	run("orders ingester", ordersIngester.Run)

	<-ctx.Done()
	// Release any publisher blocked on the bus so the ingesters can exit.
	bus.Close()
	wg.Wait()
	log.Println("[processor] stopped")
}
