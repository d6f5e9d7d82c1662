package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries everything the three processes read from the environment.
// An optional YAML file (CONFIG_PATH) provides a base; environment variables
// override it field by field.
type Config struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Lokalise LokaliseConfig `yaml:"lokalise"`
	Send     SendConfig     `yaml:"send"`
	Limits   LimitsConfig   `yaml:"limits"`
	API      APIConfig      `yaml:"api"`

	AssetsServiceURL     string `yaml:"assets_service_url"`
	DataServiceURL       string `yaml:"data_service_url"`
	BlockchainUpdatesURL string `yaml:"blockchain_updates_url"`
	// StartingHeight 0 means "ask the data service for the matcher's last
	// exchange transaction height".
	StartingHeight uint64 `yaml:"starting_height"`
	MatcherAddress string `yaml:"matcher_address"`
	FCMAPIKey      string `yaml:"fcm_api_key"`
}

type PostgresConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	Database          string        `yaml:"database"`
	User              string        `yaml:"user"`
	Password          string        `yaml:"password"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// DSN renders a keyword/value connection string for pgx.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		c.Host, c.Port, c.Database, c.User, c.Password)
}

type RedisConfig struct {
	Hostname     string `yaml:"hostname"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	StreamName   string `yaml:"stream_name"`
	GroupName    string `yaml:"group_name"`
	ConsumerName string `yaml:"consumer_name"`
	BatchSize    int    `yaml:"batch_size"`
}

// Addr renders the host:port pair for the Redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}

type LokaliseConfig struct {
	Token     string `yaml:"token"`
	ProjectID string `yaml:"project_id"`
	APIURL    string `yaml:"api_url"`
}

type SendConfig struct {
	EmptyQueuePollPeriod   time.Duration `yaml:"empty_queue_poll_period"`
	BackoffInitialInterval time.Duration `yaml:"backoff_initial_interval"`
	BackoffMultiplier      float64       `yaml:"backoff_multiplier"`
	MaxAttempts            int           `yaml:"max_attempts"`
	ClickAction            string        `yaml:"click_action"`
	DryRun                 bool          `yaml:"dry_run"`
}

type LimitsConfig struct {
	MaxSubscriptionsPerPair int `yaml:"max_subscriptions_per_pair"`
	MaxSubscriptionsTotal   int `yaml:"max_subscriptions_total"`
}

type APIConfig struct {
	Port           int    `yaml:"port"`
	MetricsPort    int    `yaml:"metrics_port"`
	AdminJWTSecret string `yaml:"admin_jwt_secret"`
	RateLimitRPS   int    `yaml:"rate_limit_rps"`
	RateLimitBurst int    `yaml:"rate_limit_burst"`
}

// Load builds the configuration from the optional CONFIG_PATH file and the
// environment. Environment variables always win.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Postgres.Host = getEnv("PGHOST", cfg.Postgres.Host)
	cfg.Postgres.Port = getEnvInt("PGPORT", defaultInt(cfg.Postgres.Port, 5432))
	cfg.Postgres.Database = getEnv("PGDATABASE", cfg.Postgres.Database)
	cfg.Postgres.User = getEnv("PGUSER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnv("PGPASSWORD", cfg.Postgres.Password)
	cfg.Postgres.ConnectionTimeout = time.Duration(getEnvInt("POOL_CONNECTION_TIMEOUT_SEC",
		defaultInt(int(cfg.Postgres.ConnectionTimeout/time.Second), 5))) * time.Second

	cfg.Redis.Hostname = getEnv("REDIS_HOSTNAME", cfg.Redis.Hostname)
	cfg.Redis.Port = getEnvInt("REDIS_PORT", defaultInt(cfg.Redis.Port, 6379))
	cfg.Redis.User = getEnv("REDIS_USER", defaultStr(cfg.Redis.User, "default"))
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.StreamName = getEnv("REDIS_STREAM_NAME", cfg.Redis.StreamName)
	cfg.Redis.GroupName = getEnv("REDIS_GROUP_NAME", cfg.Redis.GroupName)
	cfg.Redis.ConsumerName = getEnv("REDIS_CONSUMER_NAME", cfg.Redis.ConsumerName)
	cfg.Redis.BatchSize = getEnvInt("REDIS_BATCH_SIZE", defaultInt(cfg.Redis.BatchSize, 100))

	cfg.Lokalise.Token = getEnv("LOKALISE_TOKEN", cfg.Lokalise.Token)
	cfg.Lokalise.ProjectID = getEnv("LOKALISE_PROJECT_ID", cfg.Lokalise.ProjectID)
	cfg.Lokalise.APIURL = getEnv("LOKALISE_API_URL",
		defaultStr(cfg.Lokalise.APIURL, "https://api.lokalise.com/api2"))

	cfg.Send.EmptyQueuePollPeriod = getEnvMillis("SEND_EMPTY_QUEUE_POLL_PERIOD_MILLIS",
		defaultDuration(cfg.Send.EmptyQueuePollPeriod, 5000*time.Millisecond))
	cfg.Send.BackoffInitialInterval = getEnvMillis("SEND_EXPONENTIAL_BACKOFF_INITIAL_INTERVAL_MILLIS",
		defaultDuration(cfg.Send.BackoffInitialInterval, 5000*time.Millisecond))
	cfg.Send.BackoffMultiplier = getEnvFloat("SEND_EXPONENTIAL_BACKOFF_MULTIPLIER",
		defaultFloat(cfg.Send.BackoffMultiplier, 3.0))
	cfg.Send.MaxAttempts = getEnvInt("SEND_MAX_ATTEMPTS", defaultInt(cfg.Send.MaxAttempts, 5))
	cfg.Send.ClickAction = getEnv("SEND_CLICK_ACTION", defaultStr(cfg.Send.ClickAction, "open"))
	cfg.Send.DryRun = getEnvBool("SEND_DRY_RUN", cfg.Send.DryRun)

	cfg.Limits.MaxSubscriptionsPerPair = getEnvInt("MAX_SUBSCRIPTIONS_PER_ADDRESS_PER_PAIR",
		defaultInt(cfg.Limits.MaxSubscriptionsPerPair, 10))
	cfg.Limits.MaxSubscriptionsTotal = getEnvInt("MAX_SUBSCRIPTIONS_PER_ADDRESS_TOTAL",
		defaultInt(cfg.Limits.MaxSubscriptionsTotal, 50))

	cfg.API.Port = getEnvInt("PORT", defaultInt(cfg.API.Port, 8080))
	cfg.API.MetricsPort = getEnvInt("METRICS_PORT", defaultInt(cfg.API.MetricsPort, 9090))
	cfg.API.AdminJWTSecret = getEnv("ADMIN_JWT_SECRET", cfg.API.AdminJWTSecret)
	cfg.API.RateLimitRPS = getEnvInt("API_RATE_LIMIT_RPS", defaultInt(cfg.API.RateLimitRPS, 10))
	cfg.API.RateLimitBurst = getEnvInt("API_RATE_LIMIT_BURST", defaultInt(cfg.API.RateLimitBurst, 20))

	net := Network()
	cfg.AssetsServiceURL = getEnv("ASSETS_SERVICE_URL", defaultStr(cfg.AssetsServiceURL, net.DataServiceURL))
	cfg.DataServiceURL = getEnv("DATA_SERVICE_URL", defaultStr(cfg.DataServiceURL, net.DataServiceURL))
	cfg.BlockchainUpdatesURL = getEnv("BLOCKCHAIN_UPDATES_URL", defaultStr(cfg.BlockchainUpdatesURL, net.BlockchainUpdatesURL))
	cfg.StartingHeight = getEnvUint("STARTING_HEIGHT", cfg.StartingHeight)
	cfg.MatcherAddress = getEnv("MATCHER_ADDRESS", cfg.MatcherAddress)
	cfg.FCMAPIKey = getEnv("FCM_API_KEY", cfg.FCMAPIKey)

	return cfg, nil
}

// ValidateAPI reports the settings the API process cannot start without.
func (c *Config) ValidateAPI() error {
	return missing(map[string]string{
		"PGHOST":     c.Postgres.Host,
		"PGDATABASE": c.Postgres.Database,
		"PGUSER":     c.Postgres.User,
	})
}

// ValidateProcessor reports the settings the processor cannot start without.
func (c *Config) ValidateProcessor() error {
	return missing(map[string]string{
		"PGHOST":              c.Postgres.Host,
		"PGDATABASE":          c.Postgres.Database,
		"PGUSER":              c.Postgres.User,
		"REDIS_HOSTNAME":      c.Redis.Hostname,
		"REDIS_STREAM_NAME":   c.Redis.StreamName,
		"REDIS_GROUP_NAME":    c.Redis.GroupName,
		"REDIS_CONSUMER_NAME": c.Redis.ConsumerName,
		"MATCHER_ADDRESS":     c.MatcherAddress,
		"LOKALISE_TOKEN":      c.Lokalise.Token,
		"LOKALISE_PROJECT_ID": c.Lokalise.ProjectID,
	})
}

// ValidateSender reports the settings the sender cannot start without. The
// FCM key may be empty only in dry-run mode.
func (c *Config) ValidateSender() error {
	required := map[string]string{
		"PGHOST":     c.Postgres.Host,
		"PGDATABASE": c.Postgres.Database,
		"PGUSER":     c.Postgres.User,
	}
	if !c.Send.DryRun {
		required["FCM_API_KEY"] = c.FCMAPIKey
	}
	return missing(required)
}

func missing(required map[string]string) error {
	var names []string
	for name, value := range required {
		if value == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return fmt.Errorf("missing required configuration: %s", strings.Join(names, ", "))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvUint(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func defaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func defaultDuration(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}
