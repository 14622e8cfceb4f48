package coinfolio

import (
	"context"
	"fmt"
	"strings"
)

// Coin is an entry of the market catalog, as listed by the market data API.
type Coin struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Image                    string  `json:"image,omitempty"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCapRank            int     `json:"market_cap_rank,omitempty"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h,omitempty"`
}

// Label returns the display name of the coin, e.g. "Bitcoin (BTC)".
func (c Coin) Label() string {
	return fmt.Sprintf("%s (%s)", c.Name, strings.ToUpper(c.Symbol))
}

// Catalog is the read-only list of coins available for selection, in market
// cap order.
//
// The catalog prices are a snapshot taken when the catalog was loaded. They
// are never refreshed and differ from the live prices of a [Snapshot].
type Catalog struct {
	currency string
	coins    []Coin
	index    map[string]int
}

// NewCatalog creates a catalog of coins quoted in 'currency'.
func NewCatalog(currency string, coins ...Coin) *Catalog {
	c := &Catalog{
		currency: strings.ToUpper(currency),
		coins:    coins,
		index:    make(map[string]int, len(coins)),
	}
	for i, coin := range coins {
		if _, exists := c.index[coin.ID]; !exists {
			c.index[coin.ID] = i
		}
	}
	return c
}

// Currency returns the currency the catalog prices are quoted in.
func (c *Catalog) Currency() string { return c.currency }

// Len returns the number of coins.
func (c *Catalog) Len() int { return len(c.coins) }

// Coins returns the coins in market cap order.
func (c *Catalog) Coins() []Coin { return c.coins }

// Lookup returns the coin 'id'.
func (c *Catalog) Lookup(id string) (Coin, bool) {
	i, ok := c.index[id]
	if !ok {
		return Coin{}, false
	}
	return c.coins[i], true
}

// Price returns the catalog price of coin 'id'.
func (c *Catalog) Price(id string) (Money, bool) {
	coin, ok := c.Lookup(id)
	if !ok {
		return M(0, c.currency), false
	}
	return M(coin.CurrentPrice, c.currency), true
}

// CatalogSource loads the catalog of coins.
type CatalogSource interface {
	Markets(ctx context.Context) (*Catalog, error)
}
