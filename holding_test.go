package coinfolio

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestPortfolio_Add_WeightedAverage(t *testing.T) {
	var p Portfolio
	t0 := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	if _, err := p.Add(bitcoin, Q(2), USD(100), t0); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	h, err := p.Add(bitcoin, Q(3), USD(200), t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
	if !h.Amount.Equal(Q(5)) {
		t.Errorf("Amount = %v, want 5", h.Amount)
	}
	if !h.PurchasePrice.Equal(USD(160)) {
		t.Errorf("PurchasePrice = %v, want %v", h.PurchasePrice, USD(160))
	}
	if !h.AddedAt.Equal(t0) {
		t.Errorf("AddedAt = %v, want the first purchase time %v", h.AddedAt, t0)
	}
	if got, _ := p.Get("bitcoin"); !got.Amount.Equal(Q(5)) {
		t.Errorf("Get() amount = %v, want 5", got.Amount)
	}
}

func TestPortfolio_Add_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		coin   Coin
		amount Quantity
		price  Money
	}{
		{"no coin", Coin{}, Q(1), USD(1)},
		{"zero amount", bitcoin, Q(0), USD(1)},
		{"negative amount", bitcoin, Q(-1), USD(1)},
		{"zero price", bitcoin, Q(1), USD(0)},
		{"negative price", bitcoin, Q(1), USD(-3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Portfolio
			_, err := p.Add(tt.coin, tt.amount, tt.price, time.Now())
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Add() error = %v, want ErrValidation", err)
			}
			if p.Len() != 0 {
				t.Errorf("Add() changed the portfolio")
			}
		})
	}
}

func TestPortfolio_Remove(t *testing.T) {
	var p Portfolio
	p.Add(bitcoin, Q(1), USD(30000), time.Now())
	p.Add(ethereum, Q(2), USD(2000), time.Now())

	if p.Remove("dogecoin") {
		t.Errorf("Remove(missing) = true, want false")
	}
	if p.Len() != 2 {
		t.Errorf("Remove(missing) changed the portfolio")
	}
	if !p.Remove("bitcoin") {
		t.Errorf("Remove(bitcoin) = false, want true")
	}
	if ids := p.IDs(); len(ids) != 1 || ids[0] != "ethereum" {
		t.Errorf("IDs() = %v, want [ethereum]", ids)
	}
	p.Clear()
	if p.Len() != 0 {
		t.Errorf("Clear() left %d holdings", p.Len())
	}
}

func TestPortfolio_JSON(t *testing.T) {
	var p Portfolio
	data, err := json.Marshal(&p)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("empty portfolio = %s, want []", data)
	}

	// format written by earlier versions of the tracker.
	const stored = `[{"id":"bitcoin","name":"Bitcoin","symbol":"btc","amount":0.5,"purchasePrice":30000,"addedAt":"2025-01-10T12:00:00.000Z"}]`
	if err := json.Unmarshal([]byte(stored), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	h, ok := p.Get("bitcoin")
	if !ok {
		t.Fatalf("bitcoin not found")
	}
	if !h.Amount.Equal(Q(0.5)) || !sameValue(h.PurchasePrice, USD(30000)) {
		t.Errorf("holding = %v @ %v, want 0.5 @ 30000", h.Amount, h.PurchasePrice.Decimal())
	}

	data, err = json.Marshal(&p)
	if err != nil {
		t.Fatal(err)
	}
	const want = `[{"id":"bitcoin","name":"Bitcoin","symbol":"btc","amount":0.5,"purchasePrice":30000,"addedAt":"2025-01-10T12:00:00Z"}]`
	if string(data) != want {
		t.Errorf("Marshal() = %s\nwant %s", data, want)
	}

	if err := json.Unmarshal([]byte(`[{"id":"bitcoin","amount":-1,"purchasePrice":3}]`), &p); !errors.Is(err, ErrValidation) {
		t.Errorf("Unmarshal(negative amount) error = %v, want ErrValidation", err)
	}
}
