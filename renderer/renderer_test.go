package renderer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/etnz/coinfolio"
)

func USD(v float64) coinfolio.Money { return coinfolio.M(v, "USD") }

// testView is a portfolio of bitcoin and ethereum valued at live prices.
func testView() coinfolio.View {
	holdings := []coinfolio.Holding{
		{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc", Amount: coinfolio.Q(1), PurchasePrice: USD(30000)},
		{ID: "ethereum", Name: "Ethereum", Symbol: "eth", Amount: coinfolio.Q(1), PurchasePrice: USD(6000)},
	}
	at := time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)
	snap := coinfolio.NewSnapshot("usd", at)
	snap.Quotes["bitcoin"] = coinfolio.Quote{Price: USD(35000), Change24h: 2.5}
	snap.Quotes["ethereum"] = coinfolio.Quote{Price: USD(5000), Change24h: -1}
	catalog := coinfolio.NewCatalog("usd",
		coinfolio.Coin{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 30000},
		coinfolio.Coin{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 10000},
	)
	return coinfolio.View{
		Valuation:    coinfolio.Valuate(holdings, snap, coinfolio.ValueWeighting),
		Distribution: coinfolio.DistributionSegments(holdings, catalog),
		Alerts: []coinfolio.PriceAlert{
			{ID: 1741944600000, CoinID: "bitcoin", CoinName: "Bitcoin", TargetPrice: USD(50000)},
		},
		PricedAt: at,
	}
}

func assertContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output does not contain %q:\n%s", want, got)
		}
	}
}

func TestRenderDashboard_Terminal(t *testing.T) {
	md := RenderDashboard(NewDashboard(testView()), Terminal)
	if strings.HasPrefix(md, "error") {
		t.Fatal(md)
	}
	assertContains(t, md,
		"| $40,000.00 | +2.06% | +$4,000.00 | 2 |",
		"_Live prices as of 2025-03-14 09:30:00 UTC._",
		"### Bitcoin (BTC)",
		"| $35,000.00 | +2.50% | 1.000000 | $35,000.00 | +$5,000.00 | +16.67% |",
		"### Ethereum (ETH)",
		"| $5,000.00 | -1.00% | 1.000000 | $5,000.00 | -$1,000.00 | -16.67% |",
		"_remove with `cpt remove bitcoin`_",
		"| BTC | $30,000.00 | 75.00% | ███████████████ |",
		"| ETH | $10,000.00 | 25.00% | █████ |",
		"| Jun | 15000 |",
		"- Bitcoin - $50,000.00 (`cpt unalert 1741944600000`)",
	)
}

func TestRenderDashboard_Empty(t *testing.T) {
	md := RenderDashboard(NewDashboard(coinfolio.View{Valuation: coinfolio.Valuate(nil, coinfolio.Snapshot{}, coinfolio.ValueWeighting)}), Terminal)
	assertContains(t, md,
		"| $0.00 | +0.00% | +$0.00 | 0 |",
		"_Live prices not loaded yet._",
		"### No coins in portfolio\n\nAdd your first coin to get started!",
		"_Nothing to show._",
		"_No price alerts._",
	)
}

func TestRenderDashboard_Idempotent(t *testing.T) {
	v := testView()
	a := RenderDashboard(NewDashboard(v), Web)
	b := RenderDashboard(NewDashboard(v), Web)
	if a != b {
		t.Errorf("two renderings of the same view differ")
	}
}

func TestHTML_Web(t *testing.T) {
	md := RenderDashboard(NewDashboard(testView()), Web)
	page, err := HTML(md)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	assertContains(t, page,
		"<table>",
		`<span class="change-positive">+2.50%</span>`,
		`<span class="change-negative">-1.00%</span>`,
		`<form method="post" action="/holdings/bitcoin/remove">`,
		`action="/alerts/1741944600000/remove"`,
	)
}

func TestRenderCards(t *testing.T) {
	md := RenderCards(NewDashboard(testView()), Terminal)
	assertContains(t, md, "## Holdings", "### Bitcoin (BTC)")
	if strings.Contains(md, "Price Alerts") {
		t.Errorf("cards contain other sections:\n%s", md)
	}
}

func TestTerminalOutput(t *testing.T) {
	md := RenderDashboard(NewDashboard(testView()), Terminal)
	for _, dark := range []bool{true, false} {
		out, err := TerminalOutput(md, dark)
		if err != nil {
			t.Fatalf("TerminalOutput(dark=%v) error = %v", dark, err)
		}
		if !strings.Contains(out, "Bitcoin") {
			t.Errorf("TerminalOutput(dark=%v) lost the content:\n%s", dark, out)
		}
	}
}

func TestCharts(t *testing.T) {
	var buf bytes.Buffer
	if err := Charts(&buf, NewDashboard(testView())); err != nil {
		t.Fatalf("Charts() error = %v", err)
	}
	assertContains(t, buf.String(), "Portfolio Distribution", "Portfolio Performance", "BTC", "15000")
}

func TestRenderDashboard_WebEscapesNames(t *testing.T) {
	v := testView()
	v.Valuation.Lines[0].Name = "<script>alert(1)</script>"
	md := RenderDashboard(NewDashboard(v), Web)
	if strings.Contains(md, "<script>") {
		t.Errorf("web markdown carries a raw coin name:\n%s", md)
	}
	assertContains(t, md, "&lt;script&gt;")

	md = RenderDashboard(NewDashboard(v), Terminal)
	assertContains(t, md, "### <script>alert(1)</script> (BTC)")

	tests := []struct {
		name    string
		denied  string
		visible string
	}{
		{"[Open](javascript:alert(document.cookie))", `href="javascript`, "[Open](javascript:alert(document.cookie))"},
		{"![x](evil.png)", "<img", "![x](evil.png)"},
		{"**bold** | cell", "<strong>", "**bold** | cell"},
	}
	for _, tt := range tests {
		v := testView()
		v.Valuation.Lines[0].Name = tt.name
		v.Alerts[0].CoinName = tt.name
		out, err := HTML(RenderDashboard(NewDashboard(v), Web))
		if err != nil {
			t.Fatalf("HTML() error = %v", err)
		}
		if strings.Contains(out, tt.denied) {
			t.Errorf("name %q rendered as markup %q:\n%s", tt.name, tt.denied, out)
		}
		assertContains(t, out, tt.visible)
	}
}
