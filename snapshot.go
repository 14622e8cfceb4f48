package coinfolio

import (
	"context"
	"strings"
	"time"
)

// Quote is the live price of a coin and its change over the last 24 hours.
type Quote struct {
	Price     Money
	Change24h Percent
}

// Snapshot is the result of a single batch price fetch.
//
// Snapshots are never persisted, they drive a single render cycle.
type Snapshot struct {
	Currency string
	Quotes   map[string]Quote
	// Seq is the refresh sequence number that produced this snapshot.
	Seq uint64
	// At is the time the snapshot was fetched. Zero means never fetched.
	At time.Time
}

// NewSnapshot creates an empty snapshot quoted in 'currency'.
func NewSnapshot(currency string, at time.Time) Snapshot {
	return Snapshot{
		Currency: strings.ToUpper(currency),
		Quotes:   make(map[string]Quote),
		At:       at,
	}
}

// Quote returns the quote for coin 'id'.
func (s Snapshot) Quote(id string) (Quote, bool) {
	q, ok := s.Quotes[id]
	return q, ok
}

// IsZero returns true if the snapshot was never fetched.
func (s Snapshot) IsZero() bool { return s.At.IsZero() }

// PriceSource fetches live prices for a set of coin ids.
type PriceSource interface {
	SimplePrice(ctx context.Context, ids []string) (Snapshot, error)
}
