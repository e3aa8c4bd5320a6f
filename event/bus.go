package event

import (
	"sync"

	"github.com/opentube/opentube/log"
	"github.com/sourcegraph/conc/panics"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Handler receives events of one category.
type Handler func(Event)

// Subscription identifies a registered handler.
type Subscription struct {
	id       uint64
	category Category
}

// Category returns the category the subscription listens to.
func (s Subscription) Category() Category {
	return s.category
}

type subscriber struct {
	id        uint64
	handler   Handler
	cancelled bool
}

// Bus fans events out to subscribers.
//
// Publish must only be called from the owner's control goroutine. Every other
// method may be called from any goroutine; registration and replay are posted
// through dispatch so that a new subscriber sees the retained events before
// any later publication.
type Bus struct {
	dispatch func(func())

	mu          sync.Mutex
	nextID      uint64
	subscribers map[Category][]*subscriber
	byID        map[uint64]*subscriber
	retained    map[Category]*orderedmap.OrderedMap[string, Event]
}

// NewBus returns a bus that posts deferred work through dispatch.
// A nil dispatch runs work inline.
func NewBus(dispatch func(func())) *Bus {
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}

	return &Bus{
		dispatch:    dispatch,
		subscribers: make(map[Category][]*subscriber),
		byID:        make(map[uint64]*subscriber),
		retained:    make(map[Category]*orderedmap.OrderedMap[string, Event]),
	}
}

// Subscribe registers handler for category. The handler first receives the
// latest retained event of each kind in the category, then live events.
func (b *Bus) Subscribe(category Category, handler Handler) Subscription {
	b.mu.Lock()
	b.nextID++
	sub := &subscriber{id: b.nextID, handler: handler}
	b.byID[sub.id] = sub
	b.mu.Unlock()

	b.dispatch(func() {
		b.mu.Lock()
		if sub.cancelled {
			b.mu.Unlock()
			return
		}
		replay := b.retainedLocked(category)
		b.subscribers[category] = append(b.subscribers[category], sub)
		b.mu.Unlock()

		for _, evt := range replay {
			b.deliver(sub, evt)
		}
	})

	return Subscription{id: sub.id, category: category}
}

// Unsubscribe removes a subscription. Removing twice is a no-op.
func (b *Bus) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.byID[s.id]
	if !ok {
		return
	}
	sub.cancelled = true
	delete(b.byID, s.id)

	list := b.subscribers[s.category]
	for i, candidate := range list {
		if candidate == sub {
			b.subscribers[s.category] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
}

// Publish delivers evt to every subscriber of its category in subscription order.
func (b *Bus) Publish(evt Event) {
	category := evt.Category()

	b.mu.Lock()
	if retains(evt) {
		retained, ok := b.retained[category]
		if !ok {
			retained = orderedmap.New[string, Event]()
			b.retained[category] = retained
		}
		retained.Set(evt.Name(), evt)
	}
	targets := append([]*subscriber(nil), b.subscribers[category]...)
	b.mu.Unlock()

	for _, sub := range targets {
		b.deliver(sub, evt)
	}
}

// Retained returns the events a new subscriber to category would be replayed.
func (b *Bus) Retained(category Category) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.retainedLocked(category)
}

// Clear drops every subscription and retained event.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.byID {
		sub.cancelled = true
	}
	b.byID = make(map[uint64]*subscriber)
	b.subscribers = make(map[Category][]*subscriber)
	b.retained = make(map[Category]*orderedmap.OrderedMap[string, Event])
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byID)
}

func (b *Bus) retainedLocked(category Category) []Event {
	retained, ok := b.retained[category]
	if !ok {
		return nil
	}

	events := make([]Event, 0, retained.Len())
	for pair := retained.Oldest(); pair != nil; pair = pair.Next() {
		events = append(events, pair.Value)
	}
	return events
}

func (b *Bus) deliver(sub *subscriber, evt Event) {
	b.mu.Lock()
	cancelled := sub.cancelled
	b.mu.Unlock()
	if cancelled {
		return
	}

	if recovered := panics.Try(func() { sub.handler(evt) }); recovered != nil {
		log.Errorf("%s listener panicked on %s: %s", evt.Category(), evt.Name(), recovered.String())
	}
}

// retains reports whether evt describes state a late subscriber should see.
// Failures and the end of the queue are one-shot.
func retains(evt Event) bool {
	switch evt.(type) {
	case Failure, QueueFinished:
		return false
	default:
		return true
	}
}
