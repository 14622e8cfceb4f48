package cmd

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/etnz/coinfolio"
	"github.com/google/subcommands"
)

type coinsCmd struct {
	search string
}

func (*coinsCmd) Name() string     { return "coins" }
func (*coinsCmd) Synopsis() string { return "list the coins that can be added to the portfolio" }
func (*coinsCmd) Usage() string {
	return `cpt coins [-s <text>]

  Lists the top coins by market capitalization, with their id and market price.
  Use the id to add a coin or to set an alert.
`
}

func (c *coinsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.search, "s", "", "Only list coins whose id, name or symbol contains this text")
}

func (c *coinsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	if err := s.loadCatalog(ctx); err != nil {
		return fail(err)
	}

	search := strings.ToLower(c.search)
	catalog := s.tracker.Catalog()
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOIN\tPRICE\t24H")
	for _, coin := range catalog.Coins() {
		label := coin.Label()
		if search != "" && !strings.Contains(strings.ToLower(coin.ID+" "+label), search) {
			continue
		}
		price, _ := catalog.Price(coin.ID)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", coin.ID, label, price, coinfolio.Percent(coin.PriceChangePercentage24h).SignedString())
	}
	w.Flush()
	return subcommands.ExitSuccess
}

type addCmd struct {
	coin   string
	amount string
	price  string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a coin to the portfolio" }
func (*addCmd) Usage() string {
	return `cpt add -coin <id> -amount <quantity> [-price <unit price>]

  Adds a purchase to the portfolio. Buying more of a coin already held merges
  the purchase into the holding, at the weighted average price.
  Without -price, the current market price is used.

Usage Examples:
$ cpt add -coin bitcoin -amount 0.5 -price 34000
$ cpt add -coin ethereum -amount 2
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.coin, "coin", "", "Coin id, see 'cpt coins'")
	f.StringVar(&c.amount, "amount", "", "Quantity bought")
	f.StringVar(&c.price, "price", "", "Purchase price of one unit. Defaults to the market price")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.coin == "" || c.amount == "" {
		return usage("-coin and -amount are required")
	}
	amount, err := coinfolio.ParseQuantity(c.amount)
	if err != nil {
		return usage("invalid amount %q: %v", c.amount, err)
	}

	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	if err := s.loadCatalog(ctx); err != nil {
		return fail(err)
	}

	var price coinfolio.Money
	if c.price != "" {
		if price, err = coinfolio.ParseMoney(c.price, s.tracker.Currency()); err != nil {
			return usage("invalid price %q: %v", c.price, err)
		}
	} else if p, ok := s.tracker.Autofill(c.coin); ok {
		price = p
		fmt.Fprintf(stdout, "Using the market price %s.\n", price)
	}

	if _, err := s.tracker.AddHolding(ctx, c.coin, amount, price); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type removeCmd struct{}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove a coin from the portfolio" }
func (*removeCmd) Usage() string {
	return `cpt remove <id>

  Removes the holding of a coin from the portfolio.
`
}

func (*removeCmd) SetFlags(f *flag.FlagSet) {}

func (*removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage("expected exactly one coin id")
	}
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	if err := s.tracker.RemoveHolding(ctx, f.Arg(0)); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type clearCmd struct {
	yes bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "remove every coin from the portfolio" }
func (*clearCmd) Usage() string {
	return `cpt clear [-y]

  Removes all holdings, after confirmation. Price alerts and settings are kept.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "y", false, "Do not ask for confirmation")
}

func (c *clearCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	confirm := coinfolio.ConfirmFunc(askYesNo)
	if c.yes {
		confirm = func(string) bool { return true }
	}
	if _, err := s.tracker.ClearPortfolio(ctx, confirm); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

// askYesNo asks 'question' on stdout and reads the answer from stdin.
// Anything but yes is a no.
func askYesNo(question string) bool {
	fmt.Fprintf(stdout, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
