// Package notify implements the self-expiring notification queue shown
// beneath every view, and a websocket feed that streams it.
package notify

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jonboulle/clockwork"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

// Severity classifies a notification.
type Severity string

// Severities.
const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a single transient message.
type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// EventKind says what happened to a notification.
type EventKind string

// Event kinds.
const (
	EventAdded   EventKind = "added"
	EventExpired EventKind = "expired"
)

// Event is delivered to subscribers.
type Event struct {
	Kind         EventKind    `json:"kind"`
	Notification Notification `json:"notification"`
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(q *Queue) { q.clock = c }
}

// WithLogger sets the queue's logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithNodeID sets the snowflake node used for ids (0-1023).
func WithNodeID(id int64) Option {
	return func(q *Queue) { q.nodeID = id }
}

// Queue holds live notifications in insertion order. Each entry removes
// itself after the queue's TTL, independently of every other entry.
type Queue struct {
	ttl    time.Duration
	clock  clockwork.Clock
	logger *slog.Logger
	nodeID int64
	node   *snowflake.Node

	mu      sync.Mutex
	items   []Notification
	timers  map[int64]clockwork.Timer
	subs    map[int]chan Event
	nextSub int
	closed  bool
}

// NewQueue creates a queue whose notifications live for ttl. A
// non-positive ttl selects DefaultTTL.
func NewQueue(ttl time.Duration, opts ...Option) (*Queue, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	q := &Queue{
		ttl:    ttl,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
		timers: make(map[int64]clockwork.Timer),
		subs:   make(map[int]chan Event),
	}

	for _, opt := range opts {
		opt(q)
	}

	node, err := snowflake.NewNode(q.nodeID)
	if err != nil {
		return nil, fmt.Errorf("notify: creating id generator: %w", err)
	}

	q.node = node

	return q, nil
}

// TTL returns the lifetime of each notification.
func (q *Queue) TTL() time.Duration {
	return q.ttl
}

// Push appends a notification and schedules its removal. Identical messages
// are not coalesced. Pushing to a closed queue returns the notification
// without storing it.
func (q *Queue) Push(message string, sev Severity) Notification {
	n := Notification{
		ID:        q.node.Generate().Int64(),
		Message:   message,
		Severity:  sev,
		CreatedAt: q.clock.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return n
	}

	q.items = append(q.items, n)
	q.timers[n.ID] = q.clock.AfterFunc(q.ttl, func() { q.expire(n.ID) })

	q.logger.Debug("notification added",
		slog.Int64("id", n.ID),
		slog.String("severity", string(sev)),
		slog.String("message", message),
	)

	q.broadcastLocked(Event{Kind: EventAdded, Notification: n})

	return n
}

// Info pushes an info notification.
func (q *Queue) Info(message string) Notification { return q.Push(message, SeverityInfo) }

// Success pushes a success notification.
func (q *Queue) Success(message string) Notification { return q.Push(message, SeveritySuccess) }

// Error pushes an error notification.
func (q *Queue) Error(message string) Notification { return q.Push(message, SeverityError) }

func (q *Queue) expire(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.timers, id)

	i := slices.IndexFunc(q.items, func(n Notification) bool { return n.ID == id })
	if i < 0 {
		return
	}

	n := q.items[i]
	q.items = slices.Delete(q.items, i, i+1)

	q.broadcastLocked(Event{Kind: EventExpired, Notification: n})
}

// List returns the live notifications, oldest first.
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	return slices.Clone(q.items)
}

// Len returns the number of live notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Subscribe registers for queue events. Events are dropped for a
// subscriber whose buffer is full. The returned function unsubscribes and
// closes the channel.
func (q *Queue) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, max(buffer, 1))

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		close(ch)
		return ch, func() {}
	}

	id := q.nextSub
	q.nextSub++
	q.subs[id] = ch

	return ch, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		if c, ok := q.subs[id]; ok {
			delete(q.subs, id)
			close(c)
		}
	}
}

func (q *Queue) broadcastLocked(ev Event) {
	for _, ch := range q.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close cancels pending expiries and closes every subscriber channel.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true

	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}

	for id, ch := range q.subs {
		delete(q.subs, id)
		close(ch)
	}
}
