package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind is the display style of a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

const (
	DefaultLimit = 50
	DefaultTTL   = 5 * time.Second
)

// Notification is one entry of the client-side queue.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Priority  bool      `json:"priority"`
	Event     string    `json:"event,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Aggregator keeps a bounded, ordered queue of notifications. Priority entries
// go to the head and stay until dismissed; others go to the tail and expire
// after the TTL. Expired entries are pruned on every access.
type Aggregator struct {
	mu    sync.Mutex
	items []Notification
	limit int
	ttl   time.Duration
	now   func() time.Time
}

type Option func(*Aggregator)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func WithLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.limit = n
		}
	}
}

func WithTTL(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.ttl = d
		}
	}
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{limit: DefaultLimit, ttl: DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Add inserts a notification and returns it. The queue is cut back to the
// limit from the tail, so a full queue drops the newest non-priority entry.
func (a *Aggregator) Add(kind Kind, message string, priority bool) Notification {
	return a.add(Notification{Kind: kind, Message: message, Priority: priority})
}

func (a *Aggregator) add(n Notification) Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = a.now()
	a.prune()
	if n.Priority {
		a.items = append([]Notification{n}, a.items...)
	} else {
		a.items = append(a.items, n)
	}
	if len(a.items) > a.limit {
		a.items = a.items[:a.limit]
	}
	return n
}

// Ingest classifies a hub event and queues it. It reports false for events
// that produce no notification.
func (a *Aggregator) Ingest(event string, data map[string]interface{}) (Notification, bool) {
	kind, msg, priority, ok := Classify(event, data)
	if !ok {
		return Notification{}, false
	}
	return a.add(Notification{Kind: kind, Message: msg, Priority: priority, Event: event}), true
}

// List returns the live entries in display order.
func (a *Aggregator) List() []Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prune()
	return append([]Notification(nil), a.items...)
}

func (a *Aggregator) Len() int {
	return len(a.List())
}

// Dismiss removes one entry by id.
func (a *Aggregator) Dismiss(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, n := range a.items {
		if n.ID == id {
			a.items = append(a.items[:i], a.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes everything, priority entries included.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = nil
}

func (a *Aggregator) prune() {
	now := a.now()
	kept := a.items[:0]
	for _, n := range a.items {
		if !n.Priority && now.Sub(n.CreatedAt) >= a.ttl {
			continue
		}
		kept = append(kept, n)
	}
	a.items = kept
}
