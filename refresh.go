package coinfolio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/etnz/coinfolio/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultRefreshInterval is the period between two price refreshes.
const DefaultRefreshInterval = 30 * time.Second

// Refresher periodically fetches live prices.
//
// Fetches are never cancelled by a newer one, so they can resolve out of
// order. Each fetch is stamped with an increasing sequence number and a
// snapshot is applied only if it is newer than the last applied one.
type Refresher struct {
	Interval time.Duration
	Source   PriceSource
	// Currency of the empty snapshots produced for an empty portfolio.
	Currency string
	Log      logrus.FieldLogger

	seq     atomic.Uint64
	mu      sync.Mutex
	applied uint64
}

func (r *Refresher) logger() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger().WithField("component", "refresh")
	}
	return r.Log
}

// Refresh runs a single refresh cycle for coins 'ids'.
//
// 'apply' is called with the new snapshot unless a newer one has already
// been applied. An empty 'ids' yields an empty snapshot without any fetch.
func (r *Refresher) Refresh(ctx context.Context, ids []string, apply func(Snapshot)) error {
	seq := r.seq.Add(1)
	log := r.logger().WithField("seq", seq)

	var snap Snapshot
	if len(ids) == 0 {
		snap = NewSnapshot(r.Currency, time.Now())
		metrics.RefreshCycles.WithLabelValues("skipped").Inc()
	} else {
		var err error
		snap, err = r.Source.SimplePrice(ctx, ids)
		if err != nil {
			metrics.RefreshCycles.WithLabelValues("error").Inc()
			log.WithError(err).Warn("price refresh failed, keeping previous prices")
			return err
		}
		metrics.RefreshCycles.WithLabelValues("ok").Inc()
	}
	snap.Seq = seq

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq <= r.applied {
		metrics.StaleSnapshots.Inc()
		log.WithField("applied", r.applied).Debug("dropping stale prices")
		return nil
	}
	r.applied = seq
	log.WithField("coins", len(snap.Quotes)).Debug("prices refreshed")
	apply(snap)
	return nil
}

// Run refreshes prices immediately and then every Interval, until ctx is done.
//
// Failures are logged and the loop goes on at the next tick, there is no backoff.
// Run waits for the in-flight refreshes before returning ctx's error.
func (r *Refresher) Run(ctx context.Context, ids func() []string, apply func(Snapshot)) error {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()
	cycle := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Refresh(ctx, ids(), apply)
		}()
	}

	cycle()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cycle()
		}
	}
}
