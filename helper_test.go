package coinfolio

import (
	"context"
	"sync"
	"time"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// sameValue compares amounts, whatever their currency.
func sameValue(a, b Money) bool { return a.Decimal().Equal(b.Decimal()) }

var (
	bitcoin  = Coin{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 34000}
	ethereum = Coin{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 4800}
	solana   = Coin{ID: "solana", Symbol: "sol", Name: "Solana", CurrentPrice: 150}
)

// testCatalog is a small catalog with bitcoin, ethereum and solana.
func testCatalog() *Catalog { return NewCatalog("usd", bitcoin, ethereum, solana) }

// clock is a fake time source that advances by one second on every call.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// staticMarket is a CatalogSource and a PriceSource returning fixed values.
type staticMarket struct {
	catalog *Catalog
	quotes  map[string]Quote
	err     error
}

func (m staticMarket) Markets(context.Context) (*Catalog, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.catalog, nil
}

func (m staticMarket) SimplePrice(_ context.Context, ids []string) (Snapshot, error) {
	if m.err != nil {
		return Snapshot{}, m.err
	}
	s := NewSnapshot("usd", time.Now())
	for _, id := range ids {
		if q, ok := m.quotes[id]; ok {
			s.Quotes[id] = q
		}
	}
	return s, nil
}
