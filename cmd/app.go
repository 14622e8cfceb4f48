// Package cmd implements the cpt command line application to track a crypto portfolio.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/etnz/coinfolio"
	"github.com/etnz/coinfolio/coingecko"
	"github.com/etnz/coinfolio/config"
	"github.com/etnz/coinfolio/store"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, cmd := range portfolioCommands() {
		c.Register(cmd, "portfolio")
	}
	for _, cmd := range alertCommands() {
		c.Register(cmd, "alerts")
	}
	for _, cmd := range displayCommands() {
		c.Register(cmd, "display")
	}
	for _, cmd := range dataCommands() {
		c.Register(cmd, "data")
	}
	c.Register(&topicCmd{}, "help")
}

func portfolioCommands() []subcommands.Command {
	return []subcommands.Command{&coinsCmd{}, &addCmd{}, &removeCmd{}, &clearCmd{}}
}

func alertCommands() []subcommands.Command {
	return []subcommands.Command{&alertCmd{}, &unalertCmd{}, &alertsCmd{}}
}

func displayCommands() []subcommands.Command {
	return []subcommands.Command{&showCmd{}, &watchCmd{}, &chartsCmd{}, &darkmodeCmd{}, &serveCmd{}, &assistCmd{}}
}

func dataCommands() []subcommands.Command {
	return []subcommands.Command{&exportCmd{}, &backupCmd{}, &restoreCmd{}}
}

// Commands returns every cpt command.
func Commands() []subcommands.Command {
	var all []subcommands.Command
	all = append(all, portfolioCommands()...)
	all = append(all, alertCommands()...)
	all = append(all, displayCommands()...)
	all = append(all, dataCommands()...)
	return append(all, &topicCmd{})
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile = flag.String("config", "", "Path to the configuration file. Defaults to $CPT_CONFIG, then config.yaml in the user config directory")
	storeDir   = flag.String("store-dir", "", "Directory of the portfolio data. Overrides the configured store")
	Verbose    = flag.Bool("v", false, "Enable debug logging")
)

// Standard streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin
	now              = time.Now
)

// Market is the source of the catalog and of the live prices.
type Market interface {
	coinfolio.CatalogSource
	coinfolio.PriceSource
}

// newMarket creates the market data client.
var newMarket = func(cfg *config.Config, log logrus.FieldLogger) Market {
	return coingecko.New(coingecko.Options{
		BaseURL:           cfg.Market.BaseURL,
		Currency:          cfg.Market.VsCurrency,
		APIKey:            cfg.Market.APIKey,
		Timeout:           cfg.Market.RequestTimeout,
		RequestsPerMinute: cfg.Market.RequestsPerMinute,
		Burst:             cfg.Market.Burst,
		CatalogSize:       cfg.Market.CatalogSize,
		QuoteTTL:          cfg.Market.QuoteTTL,
		DiskCache:         *cfg.Market.DiskCache,
		Log:               log,
	})
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *storeDir != "" {
		cfg.Store.Backend = "dir"
		cfg.Store.Dir = *storeDir
	}
	if *Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// openStore opens the configured persistence backend.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func() error, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemory(), func() error { return nil }, nil
	case "redis":
		r, err := store.DialRedis(ctx, cfg.RedisURL, cfg.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	default:
		d, err := store.NewDir(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return d, func() error { return nil }, nil
	}
}

// session is an open portfolio with its configuration and market data.
type session struct {
	cfg     *config.Config
	log     *logrus.Logger
	market  Market
	tracker *coinfolio.Tracker
	close   func() error
	prices  *coinfolio.Refresher
}

// openSession opens the portfolio. Confirmation messages of the changes are
// printed on stdout.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := cfg.Logging.NewLogger()
	log.SetOutput(stderr)

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("cannot open the %s store: %w", cfg.Store.Backend, err)
	}
	t, err := coinfolio.Open(ctx, st,
		coinfolio.WithLogger(log),
		coinfolio.WithCurrency(cfg.Market.VsCurrency),
	)
	if err != nil {
		closeStore()
		return nil, err
	}
	t.Subscribe(func(e coinfolio.Event) {
		if e.Message != "" {
			fmt.Fprintln(stdout, e.Message)
		}
	})
	return &session{
		cfg:     cfg,
		log:     log,
		market:  newMarket(cfg, log),
		tracker: t,
		close:   closeStore,
	}, nil
}

// Close releases the store.
func (s *session) Close() {
	if err := s.close(); err != nil {
		s.log.WithError(err).Warn("cannot close the store")
	}
}

// loadCatalog loads the coin catalog. The session remains usable without it.
func (s *session) loadCatalog(ctx context.Context) error {
	return s.tracker.LoadCatalog(ctx, s.market)
}

// refresher returns the price refresher of the session, the same for every
// call so that snapshots stay ordered. A positive 'interval' overrides the
// configured one, it must be set before Run.
func (s *session) refresher(interval time.Duration) *coinfolio.Refresher {
	if s.prices == nil {
		s.prices = &coinfolio.Refresher{
			Interval: s.cfg.Refresh.Interval,
			Source:   s.market,
			Currency: s.cfg.Market.VsCurrency,
			Log:      s.log.WithField("component", "refresh"),
		}
	}
	if interval > 0 {
		s.prices.Interval = interval
	}
	return s.prices
}

// refresh fetches the live prices once. On failure the previous prices are kept.
func (s *session) refresh(ctx context.Context) error {
	return s.refresher(0).Refresh(ctx, s.tracker.HoldingIDs(), s.tracker.ApplySnapshot)
}

// weighting returns the configured change weighting, unless 'override' is set.
func (s *session) weighting(override string) (coinfolio.ChangeWeighting, error) {
	if override == "" {
		return s.cfg.Valuation.Weighting(), nil
	}
	return coinfolio.ParseChangeWeighting(override)
}

// fail prints an error and returns a failure status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

// usage prints a usage error.
func usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}
