// Package notify surfaces new alerts as short-lived notifications.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/infra"
	"crypto_dash/pkg/quant"
)

const (
	DefaultTTL   = 5 * time.Second
	DefaultLimit = 5
)

// Notification is one queued alert with its presentation id.
type Notification struct {
	ID      string            `json:"id"`
	Alert   domain.AlertEvent `json:"alert"`
	ShownAt time.Time         `json:"shownAt"`
}

type entry struct {
	Notification
	timer infra.Timer
}

// Options tunes a Queue. Zero values take the defaults.
type Options struct {
	TTL   time.Duration
	Limit int
	Clock infra.Clock
}

// Queue holds at most Limit notifications, newest first. Each one expires
// on its own TTL timer.
type Queue struct {
	ttl   time.Duration
	limit int
	clock infra.Clock

	mu       sync.Mutex
	items    []*entry
	closed   bool
	onChange func([]Notification)
	lastSeen map[domain.AlertDomain]quant.TimeStamp
}

func NewQueue(opts Options) *Queue {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Clock == nil {
		opts.Clock = infra.SystemClock{}
	}
	return &Queue{
		ttl:      opts.TTL,
		limit:    opts.Limit,
		clock:    opts.Clock,
		lastSeen: make(map[domain.AlertDomain]quant.TimeStamp),
	}
}

// OnChange registers fn to receive the queue contents after every change.
// fn is called without the queue lock held and must not block.
func (q *Queue) OnChange(fn func([]Notification)) {
	q.mu.Lock()
	q.onChange = fn
	q.mu.Unlock()
}

// Push queues ev unless a notification with the same CreatedAt is already
// queued. It reports whether ev was added.
func (q *Queue) Push(ev domain.AlertEvent) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	for _, e := range q.items {
		if e.Alert.CreatedAt == ev.CreatedAt {
			q.mu.Unlock()
			return false
		}
	}

	id := uuid.NewString()
	e := &entry{Notification: Notification{ID: id, Alert: ev, ShownAt: q.clock.Now()}}
	e.timer = q.clock.AfterFunc(q.ttl, func() { q.Dismiss(id) })

	items := make([]*entry, 0, len(q.items)+1)
	items = append(items, e)
	items = append(items, q.items...)
	if len(items) > q.limit {
		for _, dropped := range items[q.limit:] {
			dropped.timer.Stop()
		}
		items = items[:q.limit]
	}
	q.items = items
	fn, snap := q.changedLocked()
	q.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
	return true
}

// Dismiss removes the notification with id. It reports whether it was queued.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	idx := -1
	for i, e := range q.items {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return false
	}
	q.items[idx].timer.Stop()
	items := make([]*entry, 0, len(q.items)-1)
	items = append(items, q.items[:idx]...)
	q.items = append(items, q.items[idx+1:]...)
	fn, snap := q.changedLocked()
	q.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
	return true
}

// Items returns the queued notifications, newest first.
func (q *Queue) Items() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Visible reports whether anything is queued.
func (q *Queue) Visible() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) > 0
}

// Close stops every timer and empties the queue. Later pushes are ignored.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.items {
		e.timer.Stop()
	}
	q.items = nil
	q.closed = true
}

func (q *Queue) snapshotLocked() []Notification {
	out := make([]Notification, len(q.items))
	for i, e := range q.items {
		out[i] = e.Notification
	}
	return out
}

func (q *Queue) changedLocked() (func([]Notification), []Notification) {
	if q.onChange == nil {
		return nil, nil
	}
	return q.onChange, q.snapshotLocked()
}

// StateSource is the part of the store Observe needs.
type StateSource interface {
	GetState() *engine.State
	Subscribe(fn engine.Listener) func()
}

var observedDomains = []domain.AlertDomain{domain.DomainCrypto, domain.DomainWeather}

// Observe pushes every alert that appears in the store after this call,
// per domain, oldest first. Alerts already in the history are not surfaced.
func (q *Queue) Observe(src StateSource) func() {
	q.mu.Lock()
	st := src.GetState()
	for _, d := range observedDomains {
		if h := st.Alerts(d); len(h) > 0 {
			q.lastSeen[d] = h[0].CreatedAt
		}
	}
	q.mu.Unlock()

	return src.Subscribe(func(prev, next *engine.State) {
		for _, d := range observedDomains {
			for _, ev := range q.newAlerts(d, next.Alerts(d)) {
				q.Push(ev)
			}
		}
	})
}

// newAlerts returns the entries of history newer than the last seen one,
// oldest first, and advances the watermark.
func (q *Queue) newAlerts(d domain.AlertDomain, history []domain.AlertEvent) []domain.AlertEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	last := q.lastSeen[d]
	var fresh []domain.AlertEvent
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].CreatedAt > last {
			fresh = append(fresh, history[i])
		}
	}
	if len(fresh) > 0 {
		q.lastSeen[d] = fresh[len(fresh)-1].CreatedAt
	}
	return fresh
}
