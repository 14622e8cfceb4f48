// Package config loads the cpt configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/etnz/coinfolio"
	"github.com/etnz/coinfolio/store"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Market    MarketConfig    `yaml:"market"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Valuation ValuationConfig `yaml:"valuation"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Assist    AssistConfig    `yaml:"assist"`
}

// MarketConfig holds the configuration for the CoinGecko client.
type MarketConfig struct {
	BaseURL           string        `yaml:"baseURL"`
	VsCurrency        string        `yaml:"vsCurrency"`
	APIKey            string        `yaml:"apiKey"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	Burst             int           `yaml:"burst"`
	CatalogSize       int           `yaml:"catalogSize"`
	QuoteTTL          time.Duration `yaml:"quoteTTL"`
	DiskCache         *bool         `yaml:"diskCache"`
}

// RefreshConfig holds the configuration of the price refresh loop.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ValuationConfig holds the valuation settings.
type ValuationConfig struct {
	ChangeWeighting string `yaml:"changeWeighting"` // "value" or "running"
}

// Weighting returns the parsed change weighting.
func (v ValuationConfig) Weighting() coinfolio.ChangeWeighting {
	w, _ := coinfolio.ParseChangeWeighting(v.ChangeWeighting) // validated on load
	return w
}

// StoreConfig holds the persistence backend configuration.
type StoreConfig struct {
	Backend  string `yaml:"backend"` // "dir", "redis" or "memory"
	Dir      string `yaml:"dir"`
	RedisURL string `yaml:"redisURL"`
	Prefix   string `yaml:"prefix"`
}

// ServerConfig holds the web page server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text" or "json"
}

// AssistConfig holds the configuration of the assist command.
type AssistConfig struct {
	Model string `yaml:"model"`
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	cfg := new(Config)
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a YAML file, then applies the environment
// variables and the defaults.
//
// An empty path, or a missing file at the default path, is not an error.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = getenv("CPT_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath()
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		logrus.Debugf("no configuration file at %s, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
		}
		logrus.Debugf("configuration loaded from %s", path)
	}

	cfg.applyEnv(getenv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// DefaultPath is the configuration file in the user config directory.
func DefaultPath() string {
	return store.DefaultDir() + string(os.PathSeparator) + "config.yaml"
}

// applyEnv overrides secrets and deployment settings from the environment.
func (c *Config) applyEnv(getenv func(string) string) {
	if key := getenv("COINGECKO_API_KEY"); key != "" {
		c.Market.APIKey = key
	}
	if url := getenv("CPT_REDIS_URL"); url != "" {
		c.Store.RedisURL = url
		if c.Store.Backend == "" {
			c.Store.Backend = "redis"
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Market.BaseURL == "" {
		c.Market.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.Market.VsCurrency == "" {
		c.Market.VsCurrency = "usd"
	}
	if c.Market.RequestTimeout == 0 {
		c.Market.RequestTimeout = 10 * time.Second
	}
	if c.Market.RequestsPerMinute == 0 {
		c.Market.RequestsPerMinute = 10
	}
	if c.Market.Burst == 0 {
		c.Market.Burst = 3
	}
	if c.Market.CatalogSize == 0 {
		c.Market.CatalogSize = 100
	}
	if c.Market.QuoteTTL == 0 {
		c.Market.QuoteTTL = 10 * time.Second
	}
	if c.Market.DiskCache == nil {
		on := true
		c.Market.DiskCache = &on
	}
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = coinfolio.DefaultRefreshInterval
	}
	if c.Valuation.ChangeWeighting == "" {
		c.Valuation.ChangeWeighting = "value"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "dir"
	}
	if c.Store.Dir == "" {
		c.Store.Dir = store.DefaultDir()
	}
	if c.Store.Prefix == "" {
		c.Store.Prefix = "coinfolio:"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "localhost:8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Assist.Model == "" {
		c.Assist.Model = "gemini-2.5-flash"
	}
}

func (c *Config) validate() error {
	if _, err := coinfolio.ParseChangeWeighting(c.Valuation.ChangeWeighting); err != nil {
		return err
	}
	switch c.Store.Backend {
	case "dir", "memory":
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redisURL is required by the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q, expected dir, redis or memory", c.Store.Backend)
	}
	if c.Refresh.Interval < time.Second {
		return fmt.Errorf("refresh.interval %v is too short", c.Refresh.Interval)
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown logging format %q, expected text or json", c.Logging.Format)
	}
	return nil
}

// NewLogger configures a logger writing to stderr.
func (l LoggingConfig) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(l.Level); err == nil {
		log.SetLevel(level)
	}
	if strings.ToLower(l.Format) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
