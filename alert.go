package coinfolio

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"
)

// PriceAlert is a passive record of a target price for a coin.
//
// Alerts are never evaluated against live prices.
type PriceAlert struct {
	ID          int64     `json:"id"`
	CoinID      string    `json:"coinId"`
	CoinName    string    `json:"coinName"`
	TargetPrice Money     `json:"targetPrice"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Alerts is an ordered list of price alerts. Its zero value is ready to use.
type Alerts struct {
	alerts []PriceAlert
}

// NewAlerts creates an alert list, ids must be unique.
func NewAlerts(alerts ...PriceAlert) (*Alerts, error) {
	seen := make(map[int64]struct{}, len(alerts))
	for _, a := range alerts {
		if _, exists := seen[a.ID]; exists {
			return nil, fmt.Errorf("%w: duplicated alert id %d", ErrValidation, a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return &Alerts{alerts: slices.Clone(alerts)}, nil
}

// List returns a copy of the alerts in creation order.
func (a *Alerts) List() []PriceAlert { return slices.Clone(a.alerts) }

// Len returns the number of alerts.
func (a *Alerts) Len() int { return len(a.alerts) }

// MaxID returns the largest alert id, 0 if there are none.
func (a *Alerts) MaxID() int64 {
	var max int64
	for _, x := range a.alerts {
		if x.ID > max {
			max = x.ID
		}
	}
	return max
}

// Add records a new alert for 'coin' at 'target'.
func (a *Alerts) Add(coin Coin, target Money, id int64, now time.Time) (PriceAlert, error) {
	if coin.ID == "" {
		return PriceAlert{}, fmt.Errorf("%w: select a coin for the alert", ErrValidation)
	}
	if !target.IsPositive() {
		return PriceAlert{}, fmt.Errorf("%w: target price must be positive, got %v", ErrValidation, target.Decimal())
	}
	if slices.ContainsFunc(a.alerts, func(x PriceAlert) bool { return x.ID == id }) {
		return PriceAlert{}, fmt.Errorf("%w: alert id %d already exists", ErrValidation, id)
	}
	alert := PriceAlert{
		ID:          id,
		CoinID:      coin.ID,
		CoinName:    coin.Name,
		TargetPrice: target,
		CreatedAt:   now,
	}
	a.alerts = append(a.alerts, alert)
	return alert, nil
}

// Remove deletes the alert 'id'. It returns false if there was none.
func (a *Alerts) Remove(id int64) bool {
	i := slices.IndexFunc(a.alerts, func(x PriceAlert) bool { return x.ID == id })
	if i < 0 {
		return false
	}
	a.alerts = slices.Delete(a.alerts, i, i+1)
	return true
}

func (a *Alerts) clone() *Alerts { return &Alerts{alerts: slices.Clone(a.alerts)} }

// MarshalJSON writes the alerts as a JSON array, never null.
func (a *Alerts) MarshalJSON() ([]byte, error) {
	if a.alerts == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.alerts)
}

// UnmarshalJSON reads a JSON array of alerts.
func (a *Alerts) UnmarshalJSON(data []byte) error {
	var alerts []PriceAlert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return err
	}
	b, err := NewAlerts(alerts...)
	if err != nil {
		return err
	}
	*a = *b
	return nil
}

// IDGenerator hands out unique, strictly increasing alert ids.
//
// Ids are millisecond timestamps, bumped by one when two alerts are created
// within the same millisecond. Its zero value is ready to use.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
}

// Next returns a new id for an alert created at 'now'.
func (g *IDGenerator) Next(now time.Time) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := now.UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe makes sure that future ids are greater than 'id'.
func (g *IDGenerator) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}
