package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/etnz/coinfolio"
)

//go:embed templates/page.html
var pageFS embed.FS

var pageTemplate = template.Must(template.ParseFS(pageFS, "templates/page.html"))

type banner struct {
	Message string
	Kind    string
}

type pageData struct {
	Currency      string
	DarkMode      bool
	Banner        *banner
	Coins         []coinfolio.Coin
	Dashboard     template.HTML
	ClearQuestion string
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	fragment, err := s.fragment()
	if err != nil {
		s.log.WithError(err).Error("cannot render dashboard")
		http.Error(w, "cannot render dashboard", http.StatusInternalServerError)
		return
	}
	// the web flavor escapes names, raw HTML only comes from its own helpers.
	data := pageData{
		Currency:      s.tracker.Currency(),
		DarkMode:      s.tracker.DarkMode(),
		Coins:         s.tracker.Catalog().Coins(),
		Dashboard:     template.HTML(fragment),
		ClearQuestion: coinfolio.ClearQuestion,
	}
	if msg := r.URL.Query().Get("msg"); msg != "" {
		kind := r.URL.Query().Get("kind")
		if kind != failure {
			kind = success
		}
		data.Banner = &banner{Message: msg, Kind: kind}
	} else if err := s.tracker.CatalogErr(); err != nil {
		data.Banner = &banner{Message: bannerText(err), Kind: failure}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.log.WithError(err).Error("cannot render page")
		http.Error(w, "cannot render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

type holdingJSON struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Symbol            string             `json:"symbol"`
	Amount            coinfolio.Quantity `json:"amount"`
	PurchasePrice     coinfolio.Money    `json:"purchasePrice"`
	Quoted            bool               `json:"quoted"`
	CurrentPrice      coinfolio.Money    `json:"currentPrice"`
	Change24h         coinfolio.Percent  `json:"change24h"`
	CurrentValue      coinfolio.Money    `json:"currentValue"`
	ProfitLoss        coinfolio.Money    `json:"profitLoss"`
	ProfitLossPercent coinfolio.Percent  `json:"profitLossPercent"`
}

type segmentJSON struct {
	Label string          `json:"label"`
	Value coinfolio.Money `json:"value"`
}

type dashboardResponse struct {
	Currency        string                 `json:"currency"`
	TotalValue      coinfolio.Money        `json:"totalValue"`
	TotalCost       coinfolio.Money        `json:"totalCost"`
	TotalProfitLoss coinfolio.Money        `json:"totalProfitLoss"`
	TotalChange     coinfolio.Percent      `json:"totalChange24h"`
	Holdings        []holdingJSON          `json:"holdings"`
	Distribution    []segmentJSON          `json:"distribution"`
	Alerts          []coinfolio.PriceAlert `json:"alerts"`
	DarkMode        bool                   `json:"darkMode"`
	PricedAt        *time.Time             `json:"pricedAt,omitempty"`
}

// apiDashboard serves the current valuation.
func (s *Server) apiDashboard(w http.ResponseWriter, r *http.Request) {
	v := s.tracker.View(s.weighting)
	resp := dashboardResponse{
		Currency:        v.Valuation.Currency,
		TotalValue:      v.Valuation.TotalValue,
		TotalCost:       v.Valuation.TotalCost,
		TotalProfitLoss: v.Valuation.TotalProfitLoss,
		TotalChange:     v.Valuation.TotalChange,
		Holdings:        make([]holdingJSON, 0, len(v.Valuation.Lines)),
		Distribution:    make([]segmentJSON, 0, len(v.Distribution)),
		Alerts:          v.Alerts,
		DarkMode:        v.DarkMode,
	}
	if resp.Alerts == nil {
		resp.Alerts = []coinfolio.PriceAlert{}
	}
	if !v.PricedAt.IsZero() {
		resp.PricedAt = &v.PricedAt
	}
	for _, l := range v.Valuation.Lines {
		resp.Holdings = append(resp.Holdings, holdingJSON{
			ID:                l.ID,
			Name:              l.Name,
			Symbol:            l.Symbol,
			Amount:            l.Amount,
			PurchasePrice:     l.PurchasePrice,
			Quoted:            l.Quoted,
			CurrentPrice:      l.CurrentPrice,
			Change24h:         l.Change24h,
			CurrentValue:      l.CurrentValue,
			ProfitLoss:        l.ProfitLoss,
			ProfitLossPercent: l.ProfitLossPercent,
		})
	}
	for _, seg := range v.Distribution {
		resp.Distribution = append(resp.Distribution, segmentJSON{Label: seg.Label, Value: seg.Value})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.WithError(err).Error("cannot encode dashboard")
	}
}
