package coinfolio

import (
	"fmt"
	"slices"
	"sync"
)

// EventKind is the kind of change that happened in a [Tracker].
type EventKind int

const (
	HoldingAdded EventKind = iota + 1
	HoldingRemoved
	PortfolioCleared
	AlertAdded
	AlertRemoved
	SettingsChanged
	Restored
	PricesUpdated
)

func (k EventKind) String() string {
	switch k {
	case HoldingAdded:
		return "holding-added"
	case HoldingRemoved:
		return "holding-removed"
	case PortfolioCleared:
		return "portfolio-cleared"
	case AlertAdded:
		return "alert-added"
	case AlertRemoved:
		return "alert-removed"
	case SettingsChanged:
		return "settings-changed"
	case Restored:
		return "restored"
	case PricesUpdated:
		return "prices-updated"
	default:
		return "unknown"
	}
}

// Event describes a change in a [Tracker]. Every event calls for a re-render.
type Event struct {
	Kind    EventKind
	CoinID  string
	AlertID int64
	// Message is the confirmation to show to the user, empty for silent events.
	Message string
}

// dispatcher holds the registered event handlers.
type dispatcher struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(Event)
}

func (d *dispatcher) subscribe(h func(Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers == nil {
		d.handlers = make(map[int]func(Event))
	}
	id := d.next
	d.next++
	d.handlers[id] = h
	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.handlers, id)
		})
	}
}

// dispatch calls every handler in subscription order.
func (d *dispatcher) dispatch(e Event) {
	d.mu.Lock()
	ids := make([]int, 0, len(d.handlers))
	for id := range d.handlers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	handlers := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, d.handlers[id])
	}
	d.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}

// Confirmation messages carried by the events.
const (
	RemovedNotice      = "Coin removed from portfolio."
	ClearedNotice      = "Portfolio cleared!"
	AlertRemovedNotice = "Alert removed!"
	RestoredNotice     = "Data restored successfully!"
)

// AddedNotice is the message of a HoldingAdded event.
func AddedNotice(coinName string) string { return fmt.Sprintf("%s added to portfolio!", coinName) }

// AlertNotice is the message of an AlertAdded event.
func AlertNotice(coinName string, target Money) string {
	return fmt.Sprintf("Alert set for %s at %s!", coinName, target)
}
