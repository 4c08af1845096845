package event

import "sync"

// Handler receives a published event. Delivery is synchronous: Publish
// does not return until every handler has run.
type Handler func(Event)

type subscription struct {
	id     uint64
	fn     Handler
	active bool
}

// Bus is a topic-based publish/subscribe channel. It holds no state beyond
// the subscriber registry: no buffering, no filtering, no replay.
//
// Delivery contract: Publish invokes, in subscription order, exactly the
// handlers registered for the topic at publish time. A handler subscribed
// during delivery of an event is not invoked for that event; one
// unsubscribed during delivery is skipped.
//
// Execution is cooperative and single-goroutine in practice (the Bubble
// Tea update loop), but the registry is mutex-guarded so misuse fails
// safely rather than corrupting the slice.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Topic][]*subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]*subscription)}
}

// Subscribe registers fn for topic and returns its unsubscribe func.
// Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(topic Topic, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &subscription{id: b.nextID, fn: fn, active: true}
	b.subs[topic] = append(b.subs[topic], sub)

	id := sub.id
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[topic]
		for i, s := range list {
			if s.id == id {
				s.active = false
				b.subs[topic] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers evt to every subscriber of its topic. Handlers run
// synchronously on the caller's goroutine.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	list := b.subs[evt.Topic()]
	snapshot := make([]*subscription, len(list))
	copy(snapshot, list)
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.mu.Lock()
		live := sub.active
		b.mu.Unlock()
		if live {
			sub.fn(evt)
		}
	}
}

// SubscriberCount reports the number of live subscriptions for a topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
