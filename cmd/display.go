package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/etnz/coinfolio"
	"github.com/etnz/coinfolio/renderer"
	"github.com/google/subcommands"
)

// printMarkdown renders markdown for the terminal, or prints it raw.
func printMarkdown(md string, darkMode, raw bool) error {
	if raw {
		_, err := fmt.Fprint(stdout, md)
		return err
	}
	out, err := renderer.TerminalOutput(md, darkMode)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(stdout, out)
	return err
}

type showCmd struct {
	weighting string
	markdown  bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display the portfolio dashboard" }
func (*showCmd) Usage() string {
	return `cpt show [-weighting value|running] [-markdown]

  Fetches the live prices and displays the dashboard: total value, 24h change,
  profit and loss, one card per holding, the distribution and the alerts.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.weighting, "weighting", "", "How the total 24h change is computed: value or running. Defaults to the configuration")
	f.BoolVar(&c.markdown, "markdown", false, "Print the raw markdown")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	w, err := s.weighting(c.weighting)
	if err != nil {
		return usage("%v", err)
	}

	// both failures are logged, the dashboard is shown with what is available.
	s.loadCatalog(ctx)
	s.refresh(ctx)

	md := renderer.RenderDashboard(renderer.NewDashboard(s.tracker.View(w)), renderer.Terminal)
	if err := printMarkdown(md, s.tracker.DarkMode(), c.markdown); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type watchCmd struct {
	interval  time.Duration
	weighting string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "display the dashboard and refresh it periodically" }
func (*watchCmd) Usage() string {
	return `cpt watch [-interval <duration>] [-weighting value|running]

  Displays the dashboard and refreshes the live prices periodically, until interrupted.
  A failed refresh keeps the previous prices, the next tick tries again.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.interval, "interval", 0, "Time between two price refreshes. Defaults to the configuration (30s)")
	f.StringVar(&c.weighting, "weighting", "", "How the total 24h change is computed: value or running. Defaults to the configuration")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.interval != 0 && c.interval < time.Second {
		return usage("-interval %v is too short", c.interval)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	w, err := s.weighting(c.weighting)
	if err != nil {
		return usage("%v", err)
	}
	s.loadCatalog(ctx)

	draw := func(coinfolio.Event) {
		md := renderer.RenderDashboard(renderer.NewDashboard(s.tracker.View(w)), renderer.Terminal)
		out, err := renderer.TerminalOutput(md, s.tracker.DarkMode())
		if err != nil {
			s.log.WithError(err).Error("cannot render dashboard")
			return
		}
		// clear the screen, and move the cursor home.
		fmt.Fprint(stdout, "\033[H\033[2J", out)
	}
	s.tracker.Subscribe(draw)

	err = s.refresher(c.interval).Run(ctx, s.tracker.HoldingIDs, s.tracker.ApplySnapshot)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type chartsCmd struct {
	output string
}

func (*chartsCmd) Name() string     { return "charts" }
func (*chartsCmd) Synopsis() string { return "write the distribution and performance charts" }
func (*chartsCmd) Usage() string {
	return `cpt charts [-o <file>]

  Writes an HTML page with the portfolio distribution pie chart and the
  performance line chart. The performance chart is illustrative.
`
}

func (c *chartsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "crypto-charts.html", "Output file")
}

func (c *chartsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	s.loadCatalog(ctx)

	out, err := os.Create(c.output)
	if err != nil {
		return fail(err)
	}
	d := renderer.NewDashboard(s.tracker.View(s.cfg.Valuation.Weighting()))
	if err := renderer.Charts(out, d); err != nil {
		out.Close()
		return fail(err)
	}
	if err := out.Close(); err != nil {
		return fail(err)
	}
	fmt.Fprintf(stdout, "Charts written to %s\n", c.output)
	return subcommands.ExitSuccess
}

type darkmodeCmd struct{}

func (*darkmodeCmd) Name() string     { return "darkmode" }
func (*darkmodeCmd) Synopsis() string { return "show or change the dark mode setting" }
func (*darkmodeCmd) Usage() string {
	return `cpt darkmode [on|off|toggle]

  Without argument, prints the dark mode setting. Dark mode selects the dark
  terminal style and the dark web page.
`
}

func (*darkmodeCmd) SetFlags(f *flag.FlagSet) {}

func (*darkmodeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		return usage("expected at most one argument: on, off or toggle")
	}
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	on := s.tracker.DarkMode()
	switch strings.ToLower(f.Arg(0)) {
	case "":
	case "on":
		on, err = true, s.tracker.SetDarkMode(ctx, true)
	case "off":
		on, err = false, s.tracker.SetDarkMode(ctx, false)
	case "toggle":
		on, err = s.tracker.ToggleDarkMode(ctx)
	default:
		return usage("unknown argument %q, expected on, off or toggle", f.Arg(0))
	}
	if err != nil {
		return fail(err)
	}
	if on {
		fmt.Fprintln(stdout, "Dark mode is on.")
	} else {
		fmt.Fprintln(stdout, "Dark mode is off.")
	}
	return subcommands.ExitSuccess
}
