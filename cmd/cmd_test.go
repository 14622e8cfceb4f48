package cmd

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/etnz/coinfolio"
	"github.com/etnz/coinfolio/config"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

var fixedTime = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

// market is a fake market with bitcoin and ethereum.
type market struct{}

func (market) Markets(context.Context) (*coinfolio.Catalog, error) {
	return coinfolio.NewCatalog("usd",
		coinfolio.Coin{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 34000, PriceChangePercentage24h: 1.5},
		coinfolio.Coin{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 4800, PriceChangePercentage24h: -2},
	), nil
}

func (market) SimplePrice(_ context.Context, ids []string) (coinfolio.Snapshot, error) {
	s := coinfolio.NewSnapshot("usd", fixedTime)
	prices := map[string]float64{"bitcoin": 35000, "ethereum": 5000}
	for _, id := range ids {
		if p, ok := prices[id]; ok {
			s.Quotes[id] = coinfolio.Quote{Price: coinfolio.M(p, "USD"), Change24h: 1}
		}
	}
	return s, nil
}

// streams holds the standard streams captured by setup.
type streams struct {
	out, err *bytes.Buffer
	in       *strings.Reader
}

// setup points the commands to a fresh store directory and captures the
// standard streams.
func setup(t *testing.T) *streams {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "market:\n  diskCache: false\nstore:\n  backend: dir\n  dir: " + filepath.Join(dir, "store") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := &streams{out: new(bytes.Buffer), err: new(bytes.Buffer), in: strings.NewReader("")}
	oldConfig, oldMarket := *configFile, newMarket
	oldOut, oldErr, oldIn, oldNow := stdout, stderr, stdin, now
	*configFile = path
	newMarket = func(*config.Config, logrus.FieldLogger) Market { return market{} }
	stdout, stderr, stdin = s.out, s.err, s.in
	now = func() time.Time { return fixedTime }
	t.Cleanup(func() {
		*configFile, newMarket = oldConfig, oldMarket
		stdout, stderr, stdin, now = oldOut, oldErr, oldIn, oldNow
	})
	return s
}

// run executes the command line 'args' and resets the captured output.
func (s *streams) run(t *testing.T, args ...string) subcommands.ExitStatus {
	t.Helper()
	s.out.Reset()
	s.err.Reset()
	fs := flag.NewFlagSet("cpt", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "cpt")
	Register(commander)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%q) error = %v", args, err)
	}
	return commander.Execute(context.Background())
}

// input sets the content of stdin.
func (s *streams) input(text string) { s.in.Reset(text) }

func TestAddAndShow(t *testing.T) {
	s := setup(t)

	if status := s.run(t, "add", "-coin", "bitcoin", "-amount", "0.5", "-price", "30000"); status != subcommands.ExitSuccess {
		t.Fatalf("add status = %v, stderr: %s", status, s.err)
	}
	if got := s.out.String(); !strings.Contains(got, "Bitcoin added to portfolio!") {
		t.Errorf("add output = %q", got)
	}

	if status := s.run(t, "add", "-coin", "ethereum", "-amount", "2"); status != subcommands.ExitSuccess {
		t.Fatalf("add status = %v, stderr: %s", status, s.err)
	}
	if got := s.out.String(); !strings.Contains(got, "Using the market price $4,800.00.") {
		t.Errorf("autofill output = %q", got)
	}

	if status := s.run(t, "show", "-markdown"); status != subcommands.ExitSuccess {
		t.Fatalf("show status = %v, stderr: %s", status, s.err)
	}
	md := s.out.String()
	for _, want := range []string{"Bitcoin", "Ethereum", "$35,000.00"} {
		if !strings.Contains(md, want) {
			t.Errorf("show output does not contain %q:\n%s", want, md)
		}
	}
}

func TestAdd_Invalid(t *testing.T) {
	s := setup(t)
	tests := []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{"missing coin", []string{"add", "-amount", "1"}, subcommands.ExitUsageError},
		{"invalid amount", []string{"add", "-coin", "bitcoin", "-amount", "abc"}, subcommands.ExitUsageError},
		{"negative amount", []string{"add", "-coin", "bitcoin", "-amount", "-1", "-price", "10"}, subcommands.ExitFailure},
		{"unknown coin", []string{"add", "-coin", "dogecoin", "-amount", "1", "-price", "10"}, subcommands.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.run(t, tt.args...); got != tt.want {
				t.Errorf("status = %v, want %v, stderr: %s", got, tt.want, s.err)
			}
			if !strings.HasPrefix(s.err.String(), "Error: ") {
				t.Errorf("stderr = %q, want an error", s.err)
			}
		})
	}
}

func TestRemoveAndClear(t *testing.T) {
	s := setup(t)
	s.run(t, "add", "-coin", "bitcoin", "-amount", "1", "-price", "30000")
	s.run(t, "add", "-coin", "ethereum", "-amount", "1", "-price", "3000")

	if status := s.run(t, "remove", "bitcoin"); status != subcommands.ExitSuccess {
		t.Fatalf("remove status = %v, stderr: %s", status, s.err)
	}
	if got := s.out.String(); !strings.Contains(got, coinfolio.RemovedNotice) {
		t.Errorf("remove output = %q", got)
	}
	if status := s.run(t, "remove"); status != subcommands.ExitUsageError {
		t.Errorf("remove without id status = %v", status)
	}

	s.input("n\n")
	s.run(t, "clear")
	if got := s.out.String(); !strings.Contains(got, coinfolio.ClearQuestion) || strings.Contains(got, coinfolio.ClearedNotice) {
		t.Errorf("declined clear output = %q", got)
	}

	s.input("y\n")
	s.run(t, "clear")
	if got := s.out.String(); !strings.Contains(got, coinfolio.ClearedNotice) {
		t.Errorf("clear output = %q", got)
	}

	s.run(t, "show", "-markdown")
	if got := s.out.String(); strings.Contains(got, "Ethereum") {
		t.Errorf("show after clear still lists ethereum:\n%s", got)
	}
}

func TestAlerts(t *testing.T) {
	s := setup(t)

	s.run(t, "alerts")
	if got := s.out.String(); got != "No price alerts.\n" {
		t.Errorf("alerts output = %q", got)
	}

	if status := s.run(t, "alert", "-coin", "bitcoin", "-price", "50000"); status != subcommands.ExitSuccess {
		t.Fatalf("alert status = %v, stderr: %s", status, s.err)
	}
	if got := s.out.String(); !strings.Contains(got, "Alert set for Bitcoin at $50,000.00!") {
		t.Errorf("alert output = %q", got)
	}
	if status := s.run(t, "alert", "-coin", "bitcoin"); status != subcommands.ExitUsageError {
		t.Errorf("alert without price status = %v", status)
	}

	s.run(t, "alerts")
	if got := s.out.String(); !strings.Contains(got, "Bitcoin") || !strings.Contains(got, "$50,000.00") {
		t.Errorf("alerts output = %q", got)
	}

	sess, err := openSession(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	alerts := sess.tracker.Alerts()
	sess.Close()
	if len(alerts) != 1 {
		t.Fatalf("alerts = %v, want 1", alerts)
	}

	if status := s.run(t, "unalert", "abc"); status != subcommands.ExitUsageError {
		t.Errorf("unalert abc status = %v", status)
	}
	if status := s.run(t, "unalert", strconv.FormatInt(alerts[0].ID, 10)); status != subcommands.ExitSuccess {
		t.Fatalf("unalert status = %v, stderr: %s", status, s.err)
	}
	if got := s.out.String(); !strings.Contains(got, coinfolio.AlertRemovedNotice) {
		t.Errorf("unalert output = %q", got)
	}
}

func TestSession_SharedRefresher(t *testing.T) {
	setup(t)
	ctx := context.Background()
	sess, err := openSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	if err := sess.loadCatalog(ctx); err != nil {
		t.Fatal(err)
	}

	r := sess.refresher(0)
	if got := sess.refresher(5 * time.Second); got != r {
		t.Fatal("refresher() returned a new refresher")
	}
	if r.Interval != 5*time.Second {
		t.Errorf("interval = %v, want the 5s override", r.Interval)
	}

	// every refresh goes through the same sequence, later ones are applied.
	sess.tracker.AddHolding(ctx, "bitcoin", coinfolio.Q(1), coinfolio.M(30000, "USD"))
	if err := sess.refresh(ctx); err != nil {
		t.Fatal(err)
	}
	sess.tracker.AddHolding(ctx, "ethereum", coinfolio.Q(1), coinfolio.M(4000, "USD"))
	if err := sess.refresh(ctx); err != nil {
		t.Fatal(err)
	}
	lines := sess.tracker.View(coinfolio.ValueWeighting).Valuation.Lines
	if len(lines) != 2 || !lines[0].Quoted || !lines[1].Quoted {
		t.Errorf("lines = %+v, want both holdings quoted", lines)
	}
}

func TestDarkMode(t *testing.T) {
	s := setup(t)
	steps := []struct {
		arg  string
		want string
	}{
		{"", "Dark mode is off.\n"},
		{"on", "Dark mode is on.\n"},
		{"", "Dark mode is on.\n"},
		{"toggle", "Dark mode is off.\n"},
	}
	for _, step := range steps {
		args := []string{"darkmode"}
		if step.arg != "" {
			args = append(args, step.arg)
		}
		if status := s.run(t, args...); status != subcommands.ExitSuccess {
			t.Fatalf("darkmode %s status = %v, stderr: %s", step.arg, status, s.err)
		}
		if got := s.out.String(); got != step.want {
			t.Errorf("darkmode %s output = %q, want %q", step.arg, got, step.want)
		}
	}
	if status := s.run(t, "darkmode", "maybe"); status != subcommands.ExitUsageError {
		t.Errorf("darkmode maybe status = %v", status)
	}
}

func TestExport(t *testing.T) {
	s := setup(t)
	s.run(t, "add", "-coin", "bitcoin", "-amount", "2", "-price", "30000")

	name := filepath.Join(t.TempDir(), "export.json")
	if status := s.run(t, "export", "-o", name); status != subcommands.ExitSuccess {
		t.Fatalf("export status = %v, stderr: %s", status, s.err)
	}
	if got := s.out.String(); got != "Portfolio data exported successfully!\n" {
		t.Errorf("export output = %q", got)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"portfolio"`, `"totalValue"`, `"bitcoin"`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("export does not contain %s:\n%s", want, data)
		}
	}
}

func TestBackupAndRestore(t *testing.T) {
	s := setup(t)
	s.run(t, "add", "-coin", "bitcoin", "-amount", "1", "-price", "30000")
	s.run(t, "darkmode", "on")

	if status := s.run(t, "backup", "-o", "-"); status != subcommands.ExitSuccess {
		t.Fatalf("backup status = %v, stderr: %s", status, s.err)
	}
	backup := s.out.String()
	if got := s.err.String(); !strings.Contains(got, "Backup created successfully!") {
		t.Errorf("backup notice = %q", got)
	}

	// restore in a new empty store.
	s = setup(t)
	s.input(backup)
	if status := s.run(t, "restore", "-"); status != subcommands.ExitSuccess {
		t.Fatalf("restore status = %v, stderr: %s", status, s.err)
	}
	if got := s.out.String(); !strings.Contains(got, coinfolio.RestoredNotice) {
		t.Errorf("restore output = %q", got)
	}
	s.run(t, "darkmode")
	if got := s.out.String(); got != "Dark mode is on.\n" {
		t.Errorf("restored dark mode = %q", got)
	}
}

func TestRestore_Invalid(t *testing.T) {
	s := setup(t)
	s.run(t, "add", "-coin", "bitcoin", "-amount", "1", "-price", "30000")

	name := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(name, []byte(`{"portfolio": "nope"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if status := s.run(t, "restore", name); status != subcommands.ExitFailure {
		t.Errorf("restore status = %v, want failure", status)
	}
	if got := s.err.String(); !strings.Contains(got, "Error: ") {
		t.Errorf("stderr = %q", got)
	}
	if status := s.run(t, "restore"); status != subcommands.ExitUsageError {
		t.Errorf("restore without file status = %v", status)
	}

	s.run(t, "show", "-markdown")
	if got := s.out.String(); !strings.Contains(got, "Bitcoin") {
		t.Errorf("portfolio changed by an invalid restore:\n%s", got)
	}
}

func TestCoins(t *testing.T) {
	s := setup(t)
	if status := s.run(t, "coins", "-s", "ETH"); status != subcommands.ExitSuccess {
		t.Fatalf("coins status = %v, stderr: %s", status, s.err)
	}
	got := s.out.String()
	if !strings.Contains(got, "ethereum") || !strings.Contains(got, "Ethereum") {
		t.Errorf("coins output = %q", got)
	}
	if strings.Contains(got, "bitcoin") {
		t.Errorf("coins output is not filtered: %q", got)
	}
}

func TestCompletion(t *testing.T) {
	c := Completion()
	for _, name := range []string{"add", "show", "restore", "serve", "assist"} {
		if _, ok := c.Sub[name]; !ok {
			t.Errorf("no completion for %q", name)
		}
	}
	if _, ok := c.Sub["add"].Flags["coin"]; !ok {
		t.Errorf("add completion has no -coin flag")
	}
	if got := c.Sub["darkmode"].Args.Predict(""); len(got) != 3 {
		t.Errorf("darkmode arguments = %v", got)
	}
}

func TestTopic(t *testing.T) {
	s := setup(t)
	if status := s.run(t, "topic", "-markdown", "weighting"); status != subcommands.ExitSuccess {
		t.Fatalf("topic status = %v, stderr: %s", status, s.err)
	}
	if got := s.out.String(); !strings.HasPrefix(got, "# Total 24h change") {
		t.Errorf("topic output = %q", got)
	}
	if status := s.run(t, "topic", "nope"); status != subcommands.ExitFailure {
		t.Errorf("topic nope status = %v", status)
	}
}
