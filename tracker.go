package coinfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/etnz/coinfolio/metrics"
	"github.com/etnz/coinfolio/store"
	"github.com/sirupsen/logrus"
)

// Store keys of a session.
const (
	KeyPortfolio = "cryptoPortfolio"
	KeyAlerts    = "priceAlerts"
	KeyDarkMode  = "darkMode"
)

// ClearQuestion is the question asked before clearing the portfolio.
const ClearQuestion = "Are you sure you want to clear your entire portfolio? This action cannot be undone."

// Confirmer is an interactive yes/no gate.
type Confirmer interface {
	Confirm(question string) bool
}

// ConfirmFunc adapts a function to a Confirmer.
type ConfirmFunc func(question string) bool

func (f ConfirmFunc) Confirm(question string) bool { return f(question) }

// Tracker is a portfolio session.
//
// It owns the portfolio, the alerts, the settings, the catalog and the latest
// price snapshot. Every mutation is written through to the store before it
// becomes visible, then an [Event] is dispatched to the subscribers.
//
// Tracker methods are safe for concurrent use.
type Tracker struct {
	store    store.Store
	log      logrus.FieldLogger
	now      func() time.Time
	currency string

	mu         sync.RWMutex
	portfolio  *Portfolio
	alerts     *Alerts
	darkMode   bool
	catalog    *Catalog
	catalogErr error
	snapshot   Snapshot

	ids    IDGenerator
	events dispatcher
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger, defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option { return func(t *Tracker) { t.log = log } }

// WithClock sets the function that returns the current time.
func WithClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }

// WithCurrency sets the currency prices are quoted in, defaults to USD.
func WithCurrency(currency string) Option {
	return func(t *Tracker) { t.currency = M(0, currency).Currency() }
}

// Open loads a session from 'st'. Missing keys are empty values.
func Open(ctx context.Context, st store.Store, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		store:     st,
		log:       logrus.StandardLogger(),
		now:       time.Now,
		currency:  DefaultCurrency,
		portfolio: new(Portfolio),
		alerts:    new(Alerts),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.catalog = NewCatalog(t.currency)
	t.snapshot = NewSnapshot(t.currency, time.Time{})

	if err := t.load(ctx, KeyPortfolio, t.portfolio); err != nil {
		return nil, err
	}
	if err := t.load(ctx, KeyAlerts, t.alerts); err != nil {
		return nil, err
	}
	data, ok, err := st.Get(ctx, KeyDarkMode)
	if err != nil {
		return nil, fmt.Errorf("cannot load settings: %w", err)
	}
	t.darkMode = ok && string(data) == "true"
	t.ids.Observe(t.alerts.MaxID())
	metrics.Holdings.Set(float64(t.portfolio.Len()))

	t.log.WithFields(logrus.Fields{
		"holdings": t.portfolio.Len(),
		"alerts":   t.alerts.Len(),
	}).Debug("session loaded")
	return t, nil
}

func (t *Tracker) load(ctx context.Context, key string, v json.Unmarshaler) error {
	data, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("cannot load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := v.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: stored %s is corrupted: %v", ErrFormat, key, err)
	}
	return nil
}

func (t *Tracker) save(ctx context.Context, key string, v json.Marshaler) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("cannot encode %s: %w", key, err)
	}
	if err := t.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("cannot save %s: %w", key, err)
	}
	return nil
}

// entry is a store key and its encoded value.
type entry struct {
	key  string
	data []byte
}

func appendEntry(entries []entry, key string, v json.Marshaler) ([]entry, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return entries, fmt.Errorf("cannot encode %s: %w", key, err)
	}
	return append(entries, entry{key, data}), nil
}

// saveAll writes 'entries' to the store, all or nothing: when a write fails
// the keys already written are put back to their previous value.
func (t *Tracker) saveAll(ctx context.Context, entries []entry) error {
	var done []previous
	for _, e := range entries {
		data, ok, err := t.store.Get(ctx, e.key)
		if err == nil {
			err = t.store.Set(ctx, e.key, e.data)
		}
		if err != nil {
			t.rollback(ctx, done)
			return fmt.Errorf("cannot save %s: %w", e.key, err)
		}
		done = append(done, previous{entry{e.key, data}, ok})
	}
	return nil
}

// previous is the value of a key before saveAll wrote it, ok is false if the
// key was missing.
type previous struct {
	entry
	ok bool
}

// rollback restores 'done' in reverse order. Failures are only logged.
func (t *Tracker) rollback(ctx context.Context, done []previous) {
	for i := len(done) - 1; i >= 0; i-- {
		var err error
		if p := done[i]; p.ok {
			err = t.store.Set(ctx, p.key, p.data)
		} else {
			err = t.store.Delete(ctx, p.key)
		}
		if err != nil {
			t.log.WithError(err).WithField("key", done[i].key).Error("cannot roll back")
		}
	}
}

func (t *Tracker) saveDarkMode(ctx context.Context, on bool) error {
	if err := t.store.Set(ctx, KeyDarkMode, []byte(strconv.FormatBool(on))); err != nil {
		return fmt.Errorf("cannot save %s: %w", KeyDarkMode, err)
	}
	return nil
}

// Subscribe registers 'h' to be called after every change. Handlers are
// called synchronously, without any tracker lock held. The returned function
// unregisters the handler.
func (t *Tracker) Subscribe(h func(Event)) (unsubscribe func()) {
	return t.events.subscribe(h)
}

// LoadCatalog replaces the catalog with the one returned by 'src'.
//
// On failure the previous catalog is kept and an [ErrNetwork] is returned.
func (t *Tracker) LoadCatalog(ctx context.Context, src CatalogSource) error {
	c, err := src.Markets(ctx)
	if err != nil {
		t.log.WithError(err).Error("cannot load coins")
		err = fmt.Errorf("%w: error loading coins: %v", ErrNetwork, err)
		t.mu.Lock()
		t.catalogErr = err
		t.mu.Unlock()
		return err
	}
	t.mu.Lock()
	t.catalog, t.catalogErr = c, nil
	t.mu.Unlock()
	t.log.WithField("coins", c.Len()).Debug("catalog loaded")
	return nil
}

// Catalog returns the coin catalog.
func (t *Tracker) Catalog() *Catalog {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.catalog
}

// CatalogErr returns the error of the last LoadCatalog, nil if it succeeded.
func (t *Tracker) CatalogErr() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.catalogErr
}

// Currency returns the currency prices are quoted in.
func (t *Tracker) Currency() string { return t.currency }

// Holdings returns the portfolio holdings.
func (t *Tracker) Holdings() []Holding {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.portfolio.Holdings()
}

// HoldingIDs returns the coin ids of the portfolio.
func (t *Tracker) HoldingIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.portfolio.IDs()
}

// Alerts returns the price alerts.
func (t *Tracker) Alerts() []PriceAlert {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.alerts.List()
}

// DarkMode returns the dark mode setting.
func (t *Tracker) DarkMode() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.darkMode
}

// Snapshot returns the latest live prices.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// Autofill returns the catalog price of 'coinID', used to pre-fill a purchase price.
func (t *Tracker) Autofill(coinID string) (Money, bool) {
	return t.Catalog().Price(coinID)
}

// coin looks up a coin in the catalog.
func (t *Tracker) coin(coinID string) (Coin, error) {
	coin, ok := t.catalog.Lookup(coinID)
	if !ok {
		return Coin{}, fmt.Errorf("%w: invalid coin selected %q", ErrValidation, coinID)
	}
	return coin, nil
}

// checkPrice makes sure 'price' is quoted in the tracker currency.
func (t *Tracker) checkPrice(price Money) (Money, error) {
	if c := price.Currency(); c != "" && c != t.currency {
		return Money{}, fmt.Errorf("%w: price in %s, expected %s", ErrValidation, c, t.currency)
	}
	return price.In(t.currency), nil
}

// AddHolding buys 'amount' of 'coinID' at 'price' per unit.
func (t *Tracker) AddHolding(ctx context.Context, coinID string, amount Quantity, price Money) (Holding, error) {
	if coinID == "" || !amount.IsPositive() || !price.IsPositive() {
		return Holding{}, fmt.Errorf("%w: please fill in all fields with positive values", ErrValidation)
	}
	price, err := t.checkPrice(price)
	if err != nil {
		return Holding{}, err
	}

	t.mu.Lock()
	coin, err := t.coin(coinID)
	if err != nil {
		t.mu.Unlock()
		return Holding{}, err
	}
	p := t.portfolio.clone()
	h, err := p.Add(coin, amount, price, t.now())
	if err == nil {
		err = t.save(ctx, KeyPortfolio, p)
	}
	if err != nil {
		t.mu.Unlock()
		return Holding{}, err
	}
	t.portfolio = p
	metrics.Holdings.Set(float64(p.Len()))
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{"coin": coinID, "amount": amount.String()}).Info("holding added")
	t.events.dispatch(Event{Kind: HoldingAdded, CoinID: coinID, Message: AddedNotice(coin.Name)})
	return h, nil
}

// RemoveHolding removes the holding of 'coinID', if any.
func (t *Tracker) RemoveHolding(ctx context.Context, coinID string) error {
	t.mu.Lock()
	p := t.portfolio.clone()
	p.Remove(coinID)
	if err := t.save(ctx, KeyPortfolio, p); err != nil {
		t.mu.Unlock()
		return err
	}
	t.portfolio = p
	metrics.Holdings.Set(float64(p.Len()))
	t.mu.Unlock()

	t.log.WithField("coin", coinID).Info("holding removed")
	t.events.dispatch(Event{Kind: HoldingRemoved, CoinID: coinID, Message: RemovedNotice})
	return nil
}

// ClearPortfolio removes all holdings once 'confirm' agrees.
// It returns false if the user declined, in which case nothing changed.
func (t *Tracker) ClearPortfolio(ctx context.Context, confirm Confirmer) (bool, error) {
	if confirm == nil || !confirm.Confirm(ClearQuestion) {
		return false, nil
	}
	t.mu.Lock()
	p := new(Portfolio)
	if err := t.save(ctx, KeyPortfolio, p); err != nil {
		t.mu.Unlock()
		return false, err
	}
	t.portfolio = p
	metrics.Holdings.Set(0)
	t.mu.Unlock()

	t.log.Info("portfolio cleared")
	t.events.dispatch(Event{Kind: PortfolioCleared, Message: ClearedNotice})
	return true, nil
}

// AddAlert records a target price for 'coinID'.
func (t *Tracker) AddAlert(ctx context.Context, coinID string, target Money) (PriceAlert, error) {
	if coinID == "" || !target.IsPositive() {
		return PriceAlert{}, fmt.Errorf("%w: please select a coin and enter a target price", ErrValidation)
	}
	target, err := t.checkPrice(target)
	if err != nil {
		return PriceAlert{}, err
	}

	t.mu.Lock()
	coin, err := t.coin(coinID)
	if err != nil {
		t.mu.Unlock()
		return PriceAlert{}, err
	}
	a := t.alerts.clone()
	alert, err := a.Add(coin, target, t.ids.Next(t.now()), t.now())
	if err == nil {
		err = t.save(ctx, KeyAlerts, a)
	}
	if err != nil {
		t.mu.Unlock()
		return PriceAlert{}, err
	}
	t.alerts = a
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{"coin": coinID, "alert": alert.ID}).Info("alert added")
	t.events.dispatch(Event{
		Kind:    AlertAdded,
		CoinID:  coinID,
		AlertID: alert.ID,
		Message: AlertNotice(coin.Name, target),
	})
	return alert, nil
}

// RemoveAlert removes alert 'id', if any.
func (t *Tracker) RemoveAlert(ctx context.Context, id int64) error {
	t.mu.Lock()
	a := t.alerts.clone()
	a.Remove(id)
	if err := t.save(ctx, KeyAlerts, a); err != nil {
		t.mu.Unlock()
		return err
	}
	t.alerts = a
	t.mu.Unlock()

	t.log.WithField("alert", id).Info("alert removed")
	t.events.dispatch(Event{Kind: AlertRemoved, AlertID: id, Message: AlertRemovedNotice})
	return nil
}

// SetDarkMode changes the dark mode setting.
func (t *Tracker) SetDarkMode(ctx context.Context, on bool) error {
	t.mu.Lock()
	if err := t.saveDarkMode(ctx, on); err != nil {
		t.mu.Unlock()
		return err
	}
	t.darkMode = on
	t.mu.Unlock()

	t.events.dispatch(Event{Kind: SettingsChanged})
	return nil
}

// ToggleDarkMode flips the dark mode setting and returns the new value.
func (t *Tracker) ToggleDarkMode(ctx context.Context) (bool, error) {
	t.mu.Lock()
	on := !t.darkMode
	if err := t.saveDarkMode(ctx, on); err != nil {
		t.mu.Unlock()
		return t.darkMode, err
	}
	t.darkMode = on
	t.mu.Unlock()

	t.events.dispatch(Event{Kind: SettingsChanged})
	return on, nil
}

// ApplySnapshot makes 's' the latest live prices. A snapshot older than the
// current one is ignored.
func (t *Tracker) ApplySnapshot(s Snapshot) {
	t.mu.Lock()
	if s.Seq != 0 && s.Seq < t.snapshot.Seq {
		t.mu.Unlock()
		metrics.StaleSnapshots.Inc()
		return
	}
	t.snapshot = s
	t.mu.Unlock()

	t.events.dispatch(Event{Kind: PricesUpdated})
}

// Export writes the portfolio in the export format, valued at the latest live prices.
func (t *Tracker) Export(w io.Writer) error {
	t.mu.RLock()
	p := t.portfolio.clone()
	total := Valuate(p.holdings, t.snapshot, ValueWeighting).TotalValue
	t.mu.RUnlock()
	return Export(w, p, total, t.now())
}

// Backup writes the full session in the backup format.
func (t *Tracker) Backup(w io.Writer) error {
	t.mu.RLock()
	p, a, dark := t.portfolio.clone(), t.alerts.clone(), t.darkMode
	t.mu.RUnlock()
	return Backup(w, p, a, dark, t.now())
}

// Restore reads a backup from 'r' and overwrites every part of the session
// present in the file. Nothing is changed if the file is invalid.
func (t *Tracker) Restore(ctx context.Context, r io.Reader) error {
	f, err := Restore(r)
	if err != nil {
		t.log.WithError(err).Warn("restore rejected")
		return err
	}

	var entries []entry
	p, a := &Portfolio{holdings: f.Portfolio}, &Alerts{alerts: f.Alerts}
	if f.Portfolio != nil {
		// holdings have been validated by Restore
		if entries, err = appendEntry(entries, KeyPortfolio, p); err != nil {
			return err
		}
	}
	if f.Alerts != nil {
		if entries, err = appendEntry(entries, KeyAlerts, a); err != nil {
			return err
		}
	}
	restoreDark := f.Settings != nil && f.Settings.DarkMode != nil
	if restoreDark {
		entries = append(entries, entry{KeyDarkMode, []byte(strconv.FormatBool(*f.Settings.DarkMode))})
	}

	t.mu.Lock()
	if err := t.saveAll(ctx, entries); err != nil {
		t.mu.Unlock()
		return err
	}
	dark := t.darkMode
	if f.Portfolio == nil {
		p = t.portfolio
	}
	if f.Alerts == nil {
		a = t.alerts
	}
	if restoreDark {
		dark = *f.Settings.DarkMode
	}
	t.portfolio, t.alerts, t.darkMode = p, a, dark
	t.ids.Observe(a.MaxID())
	metrics.Holdings.Set(float64(p.Len()))
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{"holdings": p.Len(), "alerts": a.Len()}).Info("session restored")
	t.events.dispatch(Event{Kind: Restored, Message: RestoredNotice})
	return nil
}

// View is everything needed to render the session.
type View struct {
	Valuation    Valuation
	Distribution []Segment
	Alerts       []PriceAlert
	DarkMode     bool
	// PricedAt is the time of the live prices, zero if never fetched.
	PricedAt time.Time
}

// View values the session at the latest live prices.
func (t *Tracker) View(w ChangeWeighting) View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	holdings := t.portfolio.Holdings()
	return View{
		Valuation:    Valuate(holdings, t.snapshot, w),
		Distribution: DistributionSegments(holdings, t.catalog),
		Alerts:       t.alerts.List(),
		DarkMode:     t.darkMode,
		PricedAt:     t.snapshot.At,
	}
}
