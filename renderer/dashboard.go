package renderer

import (
	"math"
	"strings"
	"time"

	"github.com/etnz/coinfolio"
)

// Dashboard is the view model of the whole page.
type Dashboard struct {
	Currency        string
	TotalValue      coinfolio.Money
	TotalChange     coinfolio.Percent
	TotalProfitLoss coinfolio.Money
	Cards           []Card
	Distribution    []Slice
	Trend           []TrendPoint
	Alerts          []coinfolio.PriceAlert
	DarkMode        bool
	PricedAt        time.Time
}

// Card is a single holding valued at live prices.
type Card struct {
	ID                string
	Name              string
	Symbol            string // upper case
	Quoted            bool
	CurrentPrice      coinfolio.Money
	Change24h         coinfolio.Percent
	Amount            coinfolio.Quantity
	CurrentValue      coinfolio.Money
	ProfitLoss        coinfolio.Money
	ProfitLossPercent coinfolio.Percent
}

// Slice is a segment of the distribution chart.
type Slice struct {
	Label string
	Value coinfolio.Money
	Share coinfolio.Percent
	Bar   string
}

// TrendPoint is a point of the performance chart.
type TrendPoint struct {
	Month string
	Value int
}

// IllustrativeTrend is the fixed data of the performance chart. There is no
// price history behind it.
var IllustrativeTrend = []TrendPoint{
	{"Jan", 10000}, {"Feb", 12000}, {"Mar", 11000}, {"Apr", 14000}, {"May", 13000}, {"Jun", 15000},
}

// NewDashboard builds the view model of a session view.
func NewDashboard(v coinfolio.View) *Dashboard {
	d := &Dashboard{
		Currency:        v.Valuation.Currency,
		TotalValue:      v.Valuation.TotalValue,
		TotalChange:     v.Valuation.TotalChange,
		TotalProfitLoss: v.Valuation.TotalProfitLoss,
		Cards:           make([]Card, 0, len(v.Valuation.Lines)),
		Distribution:    distributionSlices(v.Distribution),
		Trend:           IllustrativeTrend,
		Alerts:          v.Alerts,
		DarkMode:        v.DarkMode,
		PricedAt:        v.PricedAt,
	}
	for _, l := range v.Valuation.Lines {
		d.Cards = append(d.Cards, Card{
			ID:                l.ID,
			Name:              l.Name,
			Symbol:            strings.ToUpper(l.Symbol),
			Quoted:            l.Quoted,
			CurrentPrice:      l.CurrentPrice,
			Change24h:         l.Change24h,
			Amount:            l.Amount,
			CurrentValue:      l.CurrentValue,
			ProfitLoss:        l.ProfitLoss,
			ProfitLossPercent: l.ProfitLossPercent,
		})
	}
	return d
}

// barWidth is the number of blocks of a 100% share.
const barWidth = 20

func distributionSlices(segments []coinfolio.Segment) []Slice {
	var total float64
	for _, s := range segments {
		total += s.Value.AsFloat()
	}
	result := make([]Slice, 0, len(segments))
	for _, s := range segments {
		var share float64
		if total > 0 {
			share = s.Value.AsFloat() / total * 100
		}
		result = append(result, Slice{
			Label: s.Label,
			Value: s.Value,
			Share: coinfolio.Percent(share),
			Bar:   strings.Repeat("█", int(math.Round(share*barWidth/100))),
		})
	}
	return result
}
