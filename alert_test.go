package coinfolio

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestIDGenerator_Monotonic(t *testing.T) {
	var g IDGenerator
	now := time.UnixMilli(1700000000000)

	a, b, c := g.Next(now), g.Next(now), g.Next(now.Add(-time.Second))
	if a != 1700000000000 {
		t.Errorf("first id = %d, want the millisecond timestamp", a)
	}
	if !(a < b && b < c) {
		t.Errorf("ids are not strictly increasing: %d, %d, %d", a, b, c)
	}

	g.Observe(1800000000000)
	if got := g.Next(now); got != 1800000000001 {
		t.Errorf("Next() after Observe() = %d, want 1800000000001", got)
	}
}

func TestAlerts(t *testing.T) {
	var a Alerts
	now := time.Now()
	if _, err := a.Add(bitcoin, USD(50000), 1, now); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := a.Add(ethereum, USD(5000), 2, now); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := a.Add(ethereum, USD(6000), 2, now); !errors.Is(err, ErrValidation) {
		t.Errorf("Add(duplicated id) error = %v, want ErrValidation", err)
	}
	if _, err := a.Add(Coin{}, USD(6000), 3, now); !errors.Is(err, ErrValidation) {
		t.Errorf("Add(no coin) error = %v, want ErrValidation", err)
	}
	if _, err := a.Add(bitcoin, USD(0), 3, now); !errors.Is(err, ErrValidation) {
		t.Errorf("Add(zero price) error = %v, want ErrValidation", err)
	}
	if a.MaxID() != 2 {
		t.Errorf("MaxID() = %d, want 2", a.MaxID())
	}
	if a.Remove(42) {
		t.Errorf("Remove(missing) = true")
	}
	if !a.Remove(1) {
		t.Errorf("Remove(1) = false")
	}
	list := a.List()
	if len(list) != 1 || list[0].CoinName != "Ethereum" {
		t.Errorf("List() = %v, want the ethereum alert", list)
	}
}

func TestAlerts_JSON(t *testing.T) {
	const stored = `[{"id":1741944600000,"coinId":"bitcoin","coinName":"Bitcoin","targetPrice":50000,"createdAt":"2025-03-14T09:30:00.000Z"}]`
	var a Alerts
	if err := json.Unmarshal([]byte(stored), &a); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if a.MaxID() != 1741944600000 {
		t.Errorf("MaxID() = %d", a.MaxID())
	}
	var empty Alerts
	if data, _ := json.Marshal(&empty); string(data) != "[]" {
		t.Errorf("empty alerts = %s, want []", data)
	}
}
