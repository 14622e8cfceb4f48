package coinfolio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
)

// slowFirst blocks its first call until released, later calls return at once.
type slowFirst struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (s *slowFirst) SimplePrice(ctx context.Context, ids []string) (Snapshot, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	snap := NewSnapshot("usd", time.Now())
	if first {
		close(s.started)
		<-s.release
		snap.Quotes["bitcoin"] = Quote{Price: USD(1)} // stale price
		return snap, nil
	}
	snap.Quotes["bitcoin"] = Quote{Price: USD(35000)}
	return snap, nil
}

func TestRefresher_DropsStaleResponse(t *testing.T) {
	log, _ := test.NewNullLogger()
	src := &slowFirst{started: make(chan struct{}), release: make(chan struct{})}
	r := &Refresher{Source: src, Log: log}

	var mu sync.Mutex
	var applied []Snapshot
	apply := func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		applied = append(applied, s)
	}

	done := make(chan error)
	go func() { done <- r.Refresh(context.Background(), []string{"bitcoin"}, apply) }()
	<-src.started

	if err := r.Refresh(context.Background(), []string{"bitcoin"}, apply); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	close(src.release)
	if err := <-done; err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if len(applied) != 1 {
		t.Fatalf("applied %d snapshots, want 1", len(applied))
	}
	if q := applied[0].Quotes["bitcoin"]; !q.Price.Equal(USD(35000)) || applied[0].Seq != 2 {
		t.Errorf("applied snapshot #%d at %v, want the newest one", applied[0].Seq, q.Price)
	}
}

func TestRefresher_EmptyPortfolio(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := &Refresher{Source: staticMarket{err: errors.New("must not be called")}, Currency: "usd", Log: log}
	var got *Snapshot
	if err := r.Refresh(context.Background(), nil, func(s Snapshot) { got = &s }); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got == nil || len(got.Quotes) != 0 || got.Currency != "USD" {
		t.Errorf("snapshot = %+v, want an empty USD snapshot", got)
	}
}

func TestRefresher_FailureKeepsGoing(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := &Refresher{
		Interval: 5 * time.Millisecond,
		Source:   staticMarket{err: errors.New("connection refused")},
		Log:      log,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	applied := false
	err := r.Run(ctx, func() []string { return []string{"bitcoin"} }, func(Snapshot) { applied = true })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
	}
	if applied {
		t.Errorf("a failed refresh applied a snapshot")
	}
	if n := len(hook.AllEntries()); n < 2 {
		t.Errorf("logged %d failures, want the loop to keep going", n)
	}
}

func TestRefresher_Run(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := &Refresher{
		Interval: time.Hour,
		Source:   staticMarket{quotes: map[string]Quote{"bitcoin": {Price: USD(35000), Change24h: 2.5}}},
		Log:      log,
	}
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan Snapshot, 1)
	go r.Run(ctx, func() []string { return []string{"bitcoin"} }, func(s Snapshot) { got <- s; cancel() })

	select {
	case s := <-got:
		if q, ok := s.Quote("bitcoin"); !ok || !q.Price.Equal(USD(35000)) {
			t.Errorf("snapshot = %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not refresh on start")
	}
}
