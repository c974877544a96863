package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the stock collector.
type Config struct {
	Storage      Storage         `yaml:"storage"`
	State        State           `yaml:"state"`
	Nasdaq       Nasdaq          `yaml:"nasdaq"`
	AlphaVantage AlphaVantage    `yaml:"alphavantage"`
	Collector    CollectorConfig `yaml:"collector"`
	Kafka        Kafka           `yaml:"kafka"`
	Metrics      Metrics         `yaml:"metrics"`
	Logging      Logging         `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// State selects and configures the checkpoint backend.
type State struct {
	Backend  string `yaml:"backend"` // file, sqlite or redis
	FilePath string `yaml:"file_path"`
	Redis    Redis  `yaml:"redis"`
}

// Redis holds connection settings for the redis checkpoint backend.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Nasdaq configures the primary data source.
type Nasdaq struct {
	BaseURL         string        `yaml:"base_url"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	CourtesyPause   time.Duration `yaml:"courtesy_pause"`
	Timeout         time.Duration `yaml:"timeout"`
}

// AlphaVantage configures the secondary data source. APIKeys are tried in
// order; quota exhaustion on one key moves to the next.
type AlphaVantage struct {
	BaseURL string        `yaml:"base_url"`
	APIKeys []string      `yaml:"api_keys"`
	Timeout time.Duration `yaml:"timeout"`
}

// CollectorConfig controls the date loop.
type CollectorConfig struct {
	BackfillYears int           `yaml:"backfill_years"`
	Location      string        `yaml:"location"`
	RunTimeout    time.Duration `yaml:"run_timeout"`
	Schedule      string        `yaml:"schedule"`
	SymbolsPath   string        `yaml:"symbols_path"`
}

// Kafka configures the optional commit-event producer. An empty broker list
// disables publishing.
type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Metrics configures the Prometheus endpoint served in daemon mode.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// DefaultPath is used when STOCK_COLLECTOR_CONFIG is not set.
const DefaultPath = "config/stock-collector.yaml"

// Path returns the config file path from the environment or DefaultPath.
func Path() string {
	if p := os.Getenv("STOCK_COLLECTOR_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML configuration file at path, applies environment
// variable overrides and fills defaults. A missing file is not an error so
// the collector can be configured from the environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("STATE_BACKEND"); v != "" {
		cfg.State.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.State.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.State.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse REDIS_DB %q: %w", v, err)
		}
		cfg.State.Redis.DB = db
	}

	if v := os.Getenv("NASDAQ_BASE_URL"); v != "" {
		cfg.Nasdaq.BaseURL = v
	}
	if v := os.Getenv("ALPHAVANTAGE_BASE_URL"); v != "" {
		cfg.AlphaVantage.BaseURL = v
	}
	// Several credentials may be given separated by ';'.
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.AlphaVantage.APIKeys = splitList(v, ";")
	}

	if v := os.Getenv("COLLECTOR_SCHEDULE"); v != "" {
		cfg.Collector.Schedule = v
	}
	if v := os.Getenv("COLLECTOR_RUN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse COLLECTOR_RUN_TIMEOUT %q: %w", v, err)
		}
		cfg.Collector.RunTimeout = d
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}

	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = "file"
	}
	if cfg.State.FilePath == "" {
		cfg.State.FilePath = filepath.Join(cfg.Storage.DataDir, "state.json")
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.Storage.DataDir, "state.db")
	}
	if cfg.State.Redis.Prefix == "" {
		cfg.State.Redis.Prefix = "stock-collector:"
	}
	if cfg.Nasdaq.BaseURL == "" {
		cfg.Nasdaq.BaseURL = "https://api.nasdaq.com"
	}
	if cfg.Nasdaq.CourtesyPause == 0 {
		cfg.Nasdaq.CourtesyPause = 11 * time.Millisecond
	}
	if cfg.Nasdaq.Timeout == 0 {
		cfg.Nasdaq.Timeout = 30 * time.Second
	}
	if cfg.AlphaVantage.BaseURL == "" {
		cfg.AlphaVantage.BaseURL = "https://www.alphavantage.co"
	}
	if cfg.AlphaVantage.Timeout == 0 {
		cfg.AlphaVantage.Timeout = 30 * time.Second
	}
	if cfg.Collector.BackfillYears == 0 {
		cfg.Collector.BackfillYears = 10
	}
	if cfg.Collector.Location == "" {
		cfg.Collector.Location = "America/New_York"
	}
	if cfg.Collector.Schedule == "" {
		cfg.Collector.Schedule = "0 30 1 * * *"
	}
	if cfg.Collector.SymbolsPath == "" {
		cfg.Collector.SymbolsPath = "symbols/spx.parquet"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "stock.partitions"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks values that would otherwise fail late in a run.
func (c *Config) Validate() error {
	switch c.State.Backend {
	case "file", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}
	if c.State.Backend == "redis" && c.State.Redis.Addr == "" {
		return fmt.Errorf("state backend redis requires state.redis.addr")
	}
	if c.Collector.BackfillYears < 0 {
		return fmt.Errorf("collector.backfill_years must not be negative")
	}
	if _, err := time.LoadLocation(c.Collector.Location); err != nil {
		return fmt.Errorf("collector.location: %w", err)
	}
	return nil
}

// Location returns the time zone that defines "today" for the collector.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Collector.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(v, sep string) []string {
	var out []string
	for _, part := range strings.Split(v, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
