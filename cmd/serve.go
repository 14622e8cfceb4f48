package cmd

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/etnz/coinfolio/server"
	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the dashboard as a web page" }
func (*serveCmd) Usage() string {
	return `cpt serve [-addr <host:port>]

  Serves the dashboard web page, with the forms to edit the portfolio and the
  alerts. Live prices are refreshed periodically and pushed to the open pages.
  Metrics are exposed on /metrics.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address. Defaults to the configuration (localhost:8080)")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	// without catalog the page works, with an empty coin list and an error banner.
	if err := s.loadCatalog(ctx); err != nil {
		s.log.WithError(err).Warn("serving without coins")
	}

	addr := c.addr
	if addr == "" {
		addr = s.cfg.Server.Addr
	}
	prices := s.refresher(0)
	srv := server.New(s.tracker,
		server.WithLogger(s.log),
		server.WithWeighting(s.cfg.Valuation.Weighting()),
		server.WithRefresher(prices),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx, addr) })
	g.Go(func() error {
		err := prices.Run(ctx, s.tracker.HoldingIDs, s.tracker.ApplySnapshot)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
