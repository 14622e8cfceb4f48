package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/coinfolio"
	"github.com/sirupsen/logrus"
)

func noenv(string) string { return "" }

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
market:
  vsCurrency: eur
  requestTimeout: 5s
  diskCache: false
refresh:
  interval: 1m
valuation:
  changeWeighting: running
store:
  backend: memory
logging:
  level: debug
  format: json
`)
	cfg, err := load(path, noenv)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Market.VsCurrency != "eur" || cfg.Market.RequestTimeout != 5*time.Second {
		t.Errorf("market = %+v", cfg.Market)
	}
	if *cfg.Market.DiskCache {
		t.Errorf("diskCache = true, want false")
	}
	if cfg.Refresh.Interval != time.Minute {
		t.Errorf("refresh.interval = %v", cfg.Refresh.Interval)
	}
	if cfg.Valuation.Weighting() != coinfolio.RunningWeighting {
		t.Errorf("weighting = %v", cfg.Valuation.Weighting())
	}
	// defaults for what is not in the file.
	if cfg.Market.BaseURL != "https://api.coingecko.com/api/v3" || cfg.Market.CatalogSize != 100 {
		t.Errorf("market defaults = %+v", cfg.Market)
	}
	if cfg.Server.Addr != "localhost:8080" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}

	log := cfg.Logging.NewLogger()
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("logger level = %v", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("logger formatter = %T, want JSON", log.Formatter)
	}
}

func TestLoad_Defaults(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "CPT_CONFIG":
			return ""
		case "COINGECKO_API_KEY":
			return "CG-demo"
		}
		return ""
	}
	// the default path is missing in a test environment.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := load("", getenv)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Market.APIKey != "CG-demo" {
		t.Errorf("api key from env = %q", cfg.Market.APIKey)
	}
	if cfg.Refresh.Interval != 30*time.Second {
		t.Errorf("refresh.interval = %v, want 30s", cfg.Refresh.Interval)
	}
	if cfg.Store.Backend != "dir" || !*cfg.Market.DiskCache {
		t.Errorf("defaults = %+v %+v", cfg.Store, cfg.Market)
	}
}

func TestLoad_RedisFromEnv(t *testing.T) {
	path := writeFile(t, "{}")
	cfg, err := load(path, func(key string) string {
		if key == "CPT_REDIS_URL" {
			return "redis://localhost:6379/0"
		}
		return ""
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Backend != "redis" || cfg.Store.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("store = %+v", cfg.Store)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"weighting":    "valuation:\n  changeWeighting: median\n",
		"backend":      "store:\n  backend: postgres\n",
		"redis url":    "store:\n  backend: redis\n",
		"interval":     "refresh:\n  interval: 10ms\n",
		"level":        "logging:\n  level: loud\n",
		"format":       "logging:\n  format: xml\n",
		"not yaml":     "market: [",
		"bad duration": "market:\n  requestTimeout: soon\n",
	}
	for name, content := range tests {
		if _, err := load(writeFile(t, content), noenv); err == nil {
			t.Errorf("%s: Load() must fail", name)
		}
	}
	if _, err := load(filepath.Join(t.TempDir(), "missing.yaml"), noenv); err == nil {
		t.Errorf("Load(explicit missing file) must fail")
	}
}
