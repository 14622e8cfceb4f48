package cmd

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/etnz/coinfolio"
	"github.com/google/subcommands"
)

type alertCmd struct {
	coin  string
	price string
}

func (*alertCmd) Name() string     { return "alert" }
func (*alertCmd) Synopsis() string { return "set a price alert on a coin" }
func (*alertCmd) Usage() string {
	return `cpt alert -coin <id> -price <target price>

  Records a target price for a coin. Alerts are listed by 'cpt alerts' and on
  the dashboard; they are not evaluated against live prices.
`
}

func (c *alertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.coin, "coin", "", "Coin id, see 'cpt coins'")
	f.StringVar(&c.price, "price", "", "Target price")
}

func (c *alertCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.coin == "" || c.price == "" {
		return usage("please select a coin and enter a target price")
	}
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	target, err := coinfolio.ParseMoney(c.price, s.tracker.Currency())
	if err != nil {
		return usage("invalid price %q: %v", c.price, err)
	}
	if err := s.loadCatalog(ctx); err != nil {
		return fail(err)
	}
	if _, err := s.tracker.AddAlert(ctx, c.coin, target); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type unalertCmd struct{}

func (*unalertCmd) Name() string     { return "unalert" }
func (*unalertCmd) Synopsis() string { return "remove a price alert" }
func (*unalertCmd) Usage() string {
	return `cpt unalert <alert id>

  Removes a price alert, see 'cpt alerts' for the ids.
`
}

func (*unalertCmd) SetFlags(f *flag.FlagSet) {}

func (*unalertCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage("expected exactly one alert id")
	}
	id, err := strconv.ParseInt(f.Arg(0), 10, 64)
	if err != nil {
		return usage("invalid alert id %q", f.Arg(0))
	}
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	if err := s.tracker.RemoveAlert(ctx, id); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type alertsCmd struct{}

func (*alertsCmd) Name() string     { return "alerts" }
func (*alertsCmd) Synopsis() string { return "list the price alerts" }
func (*alertsCmd) Usage() string {
	return `cpt alerts

  Lists the price alerts with their id, most recent first.
`
}

func (*alertsCmd) SetFlags(f *flag.FlagSet) {}

func (*alertsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	alerts := s.tracker.Alerts()
	if len(alerts) == 0 {
		fmt.Fprintln(stdout, "No price alerts.")
		return subcommands.ExitSuccess
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOIN\tTARGET\tCREATED")
	for _, a := range alerts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.ID, a.CoinName, a.TargetPrice, a.CreatedAt.Local().Format(time.DateTime))
	}
	w.Flush()
	return subcommands.ExitSuccess
}
