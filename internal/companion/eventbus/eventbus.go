// Package eventbus carries one-way notifications from the companion core to whoever is
// listening on behalf of the shell. Delivery is best effort: an event published while
// nobody is subscribed, or to a subscriber that stays full past the publish timeout, is
// dropped.
package eventbus

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one notification. Name is the event name the shell listens on.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

type subscriber struct {
	id      uint64
	pattern string
	ch      chan Event

	mu     sync.Mutex
	closed bool
}

// send blocks for at most timeout waiting for buffer space.
func (s *subscriber) send(ev Event, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s.ch <- ev:
		return true
	case <-t.C:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Bus is an in-memory pub/sub bus keyed by event name.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	nextID  atomic.Uint64
	timeout time.Duration
}

// New returns a Bus that waits up to publishTimeout per slow subscriber.
func New(publishTimeout time.Duration) *Bus {
	if publishTimeout <= 0 {
		publishTimeout = 100 * time.Millisecond
	}
	return &Bus{
		subs:    make(map[uint64]*subscriber),
		timeout: publishTimeout,
	}
}

// Subscribe registers for events matching pattern and returns the delivery channel and
// a function that unsubscribes and closes it. Pattern "*" matches every event; a "*"
// segment in a dotted pattern matches one segment.
func (b *Bus) Subscribe(pattern string, bufferSize int) (<-chan Event, func()) {
	sub := &subscriber{
		id:      b.nextID.Add(1),
		pattern: pattern,
		ch:      make(chan Event, bufferSize),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub.id)
			b.mu.Unlock()
			sub.close()
		})
	}
}

// Publish delivers the event to every matching subscriber and returns how many
// received it.
func (b *Bus) Publish(name string, payload any) int {
	ev := Event{Name: name, Payload: payload}

	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if matchName(s.pattern, name) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.send(ev, b.timeout) {
			delivered++
		}
	}
	return delivered
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Shutdown closes every subscription.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*subscriber)
	b.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

func matchName(pattern, name string) bool {
	if pattern == "" || name == "" {
		return false
	}
	if pattern == "*" || pattern == name {
		return true
	}
	pp := strings.Split(pattern, ".")
	np := strings.Split(name, ".")
	if len(pp) != len(np) {
		return false
	}
	for i := range pp {
		if pp[i] != "*" && pp[i] != np[i] {
			return false
		}
	}
	return true
}
