package coinfolio

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Holding is the accumulated ownership of a single coin at an average cost basis.
type Holding struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	Amount        Quantity  `json:"amount"`
	PurchasePrice Money     `json:"purchasePrice"`
	AddedAt       time.Time `json:"addedAt"`
}

// TotalCost returns the cost basis of the holding.
func (h Holding) TotalCost() Money { return h.PurchasePrice.Mul(h.Amount) }

// validate checks the holding invariants.
func (h Holding) validate() error {
	if h.ID == "" {
		return fmt.Errorf("%w: holding has no coin id", ErrValidation)
	}
	if !h.Amount.IsPositive() {
		return fmt.Errorf("%w: amount of %q must be positive, got %v", ErrValidation, h.ID, h.Amount)
	}
	if !h.PurchasePrice.IsPositive() {
		return fmt.Errorf("%w: purchase price of %q must be positive, got %v", ErrValidation, h.ID, h.PurchasePrice.Decimal())
	}
	return nil
}

// Portfolio is an ordered list of holdings, with at most one holding per coin id.
//
// Its zero value is an empty portfolio ready to use.
type Portfolio struct {
	holdings []Holding
}

// NewPortfolio creates a portfolio from a list of holdings.
// Holdings with the same id are merged.
func NewPortfolio(holdings ...Holding) (*Portfolio, error) {
	p := new(Portfolio)
	for _, h := range holdings {
		if err := h.validate(); err != nil {
			return nil, err
		}
		p.merge(h)
	}
	return p, nil
}

// Holdings returns a copy of the holdings in insertion order.
func (p *Portfolio) Holdings() []Holding { return slices.Clone(p.holdings) }

// Len returns the number of holdings.
func (p *Portfolio) Len() int { return len(p.holdings) }

// IDs returns the coin ids held, in insertion order.
func (p *Portfolio) IDs() []string {
	ids := make([]string, 0, len(p.holdings))
	for _, h := range p.holdings {
		ids = append(ids, h.ID)
	}
	return ids
}

// Get returns the holding for coin 'id'.
func (p *Portfolio) Get(id string) (Holding, bool) {
	i := p.index(id)
	if i < 0 {
		return Holding{}, false
	}
	return p.holdings[i], true
}

func (p *Portfolio) index(id string) int {
	return slices.IndexFunc(p.holdings, func(h Holding) bool { return h.ID == id })
}

// Add buys 'amount' of 'coin' at 'price' per unit.
//
// If the coin is already held, amounts are summed and the purchase price
// becomes the cost weighted average of both.
func (p *Portfolio) Add(coin Coin, amount Quantity, price Money, now time.Time) (Holding, error) {
	h := Holding{
		ID:            coin.ID,
		Name:          coin.Name,
		Symbol:        coin.Symbol,
		Amount:        amount,
		PurchasePrice: price,
		AddedAt:       now,
	}
	if err := h.validate(); err != nil {
		return Holding{}, err
	}
	return p.merge(h), nil
}

// merge appends h or merges it into the existing holding with the same id.
func (p *Portfolio) merge(h Holding) Holding {
	i := p.index(h.ID)
	if i < 0 {
		p.holdings = append(p.holdings, h)
		return h
	}
	existing := p.holdings[i]
	totalAmount := existing.Amount.Add(h.Amount)
	totalCost := existing.TotalCost().Add(h.TotalCost())
	existing.Amount = totalAmount
	existing.PurchasePrice = totalCost.Div(totalAmount)
	p.holdings[i] = existing
	return existing
}

// Remove deletes the holding for coin 'id'. It returns false if there was none.
func (p *Portfolio) Remove(id string) bool {
	i := p.index(id)
	if i < 0 {
		return false
	}
	p.holdings = slices.Delete(p.holdings, i, i+1)
	return true
}

// Clear removes all holdings.
func (p *Portfolio) Clear() { p.holdings = nil }

// clone returns a deep enough copy to be mutated independently.
func (p *Portfolio) clone() *Portfolio {
	return &Portfolio{holdings: slices.Clone(p.holdings)}
}

// MarshalJSON writes the portfolio as a JSON array of holdings, never null.
func (p *Portfolio) MarshalJSON() ([]byte, error) {
	if p.holdings == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.holdings)
}

// UnmarshalJSON reads a JSON array of holdings.
func (p *Portfolio) UnmarshalJSON(data []byte) error {
	var holdings []Holding
	if err := json.Unmarshal(data, &holdings); err != nil {
		return err
	}
	q, err := NewPortfolio(holdings...)
	if err != nil {
		return err
	}
	*p = *q
	return nil
}
