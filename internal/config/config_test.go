package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"CONFIG_PATH", "PGHOST", "PGPORT", "PGDATABASE", "PGUSER", "PGPASSWORD",
		"POOL_CONNECTION_TIMEOUT_SEC", "REDIS_HOSTNAME", "REDIS_PORT", "REDIS_USER",
		"REDIS_PASSWORD", "REDIS_STREAM_NAME", "REDIS_GROUP_NAME", "REDIS_CONSUMER_NAME",
		"REDIS_BATCH_SIZE", "LOKALISE_TOKEN", "LOKALISE_PROJECT_ID", "LOKALISE_API_URL",
		"SEND_EMPTY_QUEUE_POLL_PERIOD_MILLIS", "SEND_EXPONENTIAL_BACKOFF_INITIAL_INTERVAL_MILLIS",
		"SEND_EXPONENTIAL_BACKOFF_MULTIPLIER", "SEND_MAX_ATTEMPTS", "SEND_CLICK_ACTION",
		"SEND_DRY_RUN", "MAX_SUBSCRIPTIONS_PER_ADDRESS_PER_PAIR", "MAX_SUBSCRIPTIONS_PER_ADDRESS_TOTAL",
		"PORT", "METRICS_PORT", "ADMIN_JWT_SECRET", "API_RATE_LIMIT_RPS", "API_RATE_LIMIT_BURST",
		"ASSETS_SERVICE_URL", "DATA_SERVICE_URL", "BLOCKCHAIN_UPDATES_URL", "STARTING_HEIGHT",
		"MATCHER_ADDRESS", "FCM_API_KEY", "WAVES_NETWORK",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("expected default postgres port 5432, got %d", cfg.Postgres.Port)
	}
	if cfg.Redis.Port != 6379 {
		t.Errorf("expected default redis port 6379, got %d", cfg.Redis.Port)
	}
	if cfg.Redis.BatchSize != 100 {
		t.Errorf("expected default batch size 100, got %d", cfg.Redis.BatchSize)
	}
	if cfg.Send.BackoffMultiplier != 3.0 {
		t.Errorf("expected default backoff multiplier 3.0, got %f", cfg.Send.BackoffMultiplier)
	}
	if cfg.Send.EmptyQueuePollPeriod != 5*time.Second {
		t.Errorf("expected default poll period 5s, got %s", cfg.Send.EmptyQueuePollPeriod)
	}
	if cfg.Send.MaxAttempts != 5 {
		t.Errorf("expected default max attempts 5, got %d", cfg.Send.MaxAttempts)
	}
	if cfg.Limits.MaxSubscriptionsPerPair != 10 || cfg.Limits.MaxSubscriptionsTotal != 50 {
		t.Errorf("unexpected default limits: %+v", cfg.Limits)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.API.Port)
	}
	if cfg.Lokalise.APIURL != "https://api.lokalise.com/api2" {
		t.Errorf("unexpected default lokalise url %q", cfg.Lokalise.APIURL)
	}
	if cfg.DataServiceURL != mainnetNetwork.DataServiceURL {
		t.Errorf("expected mainnet data service default, got %q", cfg.DataServiceURL)
	}
	if cfg.BlockchainUpdatesURL != mainnetNetwork.BlockchainUpdatesURL {
		t.Errorf("expected mainnet updates default, got %q", cfg.BlockchainUpdatesURL)
	}
}

func TestNetworkSelection(t *testing.T) {
	t.Setenv("WAVES_NETWORK", "")
	if n := Network(); n.ChainID != 'W' {
		t.Errorf("expected mainnet chain id W, got %c", n.ChainID)
	}
	t.Setenv("WAVES_NETWORK", "Testnet ")
	if n := Network(); n.ChainID != 'T' {
		t.Errorf("expected testnet chain id T, got %c", n.ChainID)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPORT", "5433")
	t.Setenv("REDIS_STREAM_NAME", "orders")
	t.Setenv("SEND_EXPONENTIAL_BACKOFF_INITIAL_INTERVAL_MILLIS", "1500")
	t.Setenv("SEND_EXPONENTIAL_BACKOFF_MULTIPLIER", "2.5")
	t.Setenv("SEND_DRY_RUN", "true")
	t.Setenv("STARTING_HEIGHT", "123456")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 5433 {
		t.Errorf("postgres overrides not applied: %+v", cfg.Postgres)
	}
	if cfg.Redis.StreamName != "orders" {
		t.Errorf("expected stream name orders, got %q", cfg.Redis.StreamName)
	}
	if cfg.Send.BackoffInitialInterval != 1500*time.Millisecond {
		t.Errorf("expected 1.5s initial interval, got %s", cfg.Send.BackoffInitialInterval)
	}
	if cfg.Send.BackoffMultiplier != 2.5 {
		t.Errorf("expected multiplier 2.5, got %f", cfg.Send.BackoffMultiplier)
	}
	if !cfg.Send.DryRun {
		t.Error("expected dry run enabled")
	}
	if cfg.StartingHeight != 123456 {
		t.Errorf("expected starting height 123456, got %d", cfg.StartingHeight)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
postgres:
  host: file-host
  port: 6543
redis:
  stream_name: file-stream
matcher_address: 3PJaDyprvekvPXPuAtxrapacuDJopgJRaU3
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PGHOST", "env-host")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postgres.Host != "env-host" {
		t.Errorf("environment should override file, got host %q", cfg.Postgres.Host)
	}
	if cfg.Postgres.Port != 6543 {
		t.Errorf("expected file port 6543, got %d", cfg.Postgres.Port)
	}
	if cfg.Redis.StreamName != "file-stream" {
		t.Errorf("expected file stream name, got %q", cfg.Redis.StreamName)
	}
	if cfg.MatcherAddress != "3PJaDyprvekvPXPuAtxrapacuDJopgJRaU3" {
		t.Errorf("unexpected matcher address %q", cfg.MatcherAddress)
	}
}

func TestValidateProcessorMissing(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = cfg.ValidateProcessor()
	if err == nil {
		t.Fatal("expected validation error for empty config")
	}
	for _, name := range []string{"PGHOST", "REDIS_STREAM_NAME", "MATCHER_ADDRESS"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected %s in validation error, got %q", name, err)
		}
	}
}

func TestValidateSenderDryRun(t *testing.T) {
	clearEnv(t)
	t.Setenv("PGHOST", "db")
	t.Setenv("PGDATABASE", "push")
	t.Setenv("PGUSER", "push")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateSender(); err == nil {
		t.Error("expected FCM_API_KEY to be required outside dry run")
	}

	t.Setenv("SEND_DRY_RUN", "true")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateSender(); err != nil {
		t.Errorf("dry run should not require FCM key: %v", err)
	}
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "localhost", Port: 5432, Database: "push", User: "app", Password: "secret"}
	dsn := c.DSN()
	for _, part := range []string{"host=localhost", "port=5432", "dbname=push", "user=app", "password=secret"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN missing %q: %s", part, dsn)
		}
	}
}
