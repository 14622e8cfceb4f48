package coinfolio

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ChangeWeighting selects how the aggregate 24h change is computed from the
// per holding changes.
type ChangeWeighting int

const (
	// ValueWeighting is the weighted average of changes by current value.
	ValueWeighting ChangeWeighting = iota
	// RunningWeighting accumulates change*(value/runningTotal) in portfolio
	// order, where runningTotal includes the current holding. The result
	// depends on the holding order. It is kept for compatibility with
	// numbers produced by earlier versions.
	RunningWeighting
)

// ParseChangeWeighting parses "value" or "running". The empty string is ValueWeighting.
func ParseChangeWeighting(s string) (ChangeWeighting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "value":
		return ValueWeighting, nil
	case "running":
		return RunningWeighting, nil
	default:
		return ValueWeighting, fmt.Errorf("%w: unknown change weighting %q, expected value or running", ErrValidation, s)
	}
}

func (w ChangeWeighting) String() string {
	switch w {
	case RunningWeighting:
		return "running"
	default:
		return "value"
	}
}

// HoldingValue is a Holding valued at live prices.
type HoldingValue struct {
	Holding
	// Quoted is false when the coin was missing from the snapshot.
	Quoted            bool
	CurrentPrice      Money
	Change24h         Percent
	CurrentValue      Money
	TotalCost         Money
	ProfitLoss        Money
	ProfitLossPercent Percent
}

// Valuation is the portfolio valued against a single Snapshot.
type Valuation struct {
	Currency        string
	Lines           []HoldingValue
	TotalValue      Money
	TotalCost       Money
	TotalProfitLoss Money
	TotalChange     Percent
}

// Valuate values 'holdings' at the live prices of 'snap'.
func Valuate(holdings []Holding, snap Snapshot, w ChangeWeighting) Valuation {
	cur := snap.Currency
	if cur == "" {
		cur = DefaultCurrency
	}
	v := Valuation{
		Currency:        cur,
		Lines:           make([]HoldingValue, 0, len(holdings)),
		TotalValue:      M(0, cur),
		TotalCost:       M(0, cur),
		TotalProfitLoss: M(0, cur),
	}

	running := decimal.Zero  // running total value
	weighted := decimal.Zero // Σ value*change
	var runningChange float64

	for _, h := range holdings {
		line := HoldingValue{
			Holding:      h,
			CurrentPrice: M(0, cur),
			TotalCost:    h.TotalCost().In(cur),
		}
		if q, ok := snap.Quote(h.ID); ok {
			line.Quoted = true
			line.CurrentPrice = q.Price.In(cur)
			line.Change24h = q.Change24h
		}
		line.CurrentValue = line.CurrentPrice.Mul(h.Amount)
		line.ProfitLoss = line.CurrentValue.Sub(line.TotalCost)
		pct, _ := line.ProfitLoss.Ratio(line.TotalCost).Mul(decimal.NewFromInt(100)).Float64()
		line.ProfitLossPercent = finite(pct)

		value := line.CurrentValue.Decimal()
		running = running.Add(value)
		weighted = weighted.Add(value.Mul(decimal.NewFromFloat(float64(line.Change24h))))
		if !running.IsZero() {
			share, _ := value.Div(running).Float64()
			runningChange += float64(line.Change24h) * share
		}

		v.TotalValue = v.TotalValue.Add(line.CurrentValue)
		v.TotalCost = v.TotalCost.Add(line.TotalCost)
		v.Lines = append(v.Lines, line)
	}
	v.TotalProfitLoss = v.TotalValue.Sub(v.TotalCost)

	switch w {
	case RunningWeighting:
		v.TotalChange = finite(runningChange)
	default:
		if !running.IsZero() {
			avg, _ := weighted.Div(running).Float64()
			v.TotalChange = finite(avg)
		}
	}
	return v
}

// Segment is a slice of the distribution chart.
type Segment struct {
	Label string
	Value Money
}

// DistributionSegments values each holding at its catalog price, one segment
// per holding labelled by its upper case symbol.
// Catalog prices are never refreshed, so segments drift from the live valuation.
func DistributionSegments(holdings []Holding, catalog *Catalog) []Segment {
	if catalog == nil {
		catalog = NewCatalog(DefaultCurrency)
	}
	segments := make([]Segment, 0, len(holdings))
	for _, h := range holdings {
		price, _ := catalog.Price(h.ID)
		segments = append(segments, Segment{
			Label: strings.ToUpper(h.Symbol),
			Value: price.Mul(h.Amount),
		})
	}
	return segments
}
