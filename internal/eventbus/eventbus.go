// Package eventbus is an in-process, topic-routed publish/subscribe bus.
// It generalizes a simple fan-out channel bus into routing-key subscriptions
// with per-consumer queues, matching a topic-exchange shape: a subscriber
// names the routing keys it wants and gets its own buffered queue fed only
// those keys.
package eventbus

import (
	"sync"

	"github.com/kilianp07/amrfleet/core/events"
)

// deliverRetries bounds how many times Publish retries a full subscriber
// queue before dropping the message for that subscriber, giving redelivery
// its at-least-once character without an unbounded retry loop.
const deliverRetries = 3

const queueSize = 64

// Subscription is a live registration on the bus. Read published envelopes
// from C; call Close when done to release the queue.
type Subscription struct {
	C      <-chan events.Envelope
	bus    *Bus
	id     uint64
	c      chan events.Envelope
	topics map[string]struct{}
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

type subscriber struct {
	id     uint64
	c      chan events.Envelope
	topics map[string]struct{} // empty set means "all topics"
}

// Bus is the in-process topic-routed event bus.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]*subscriber)}
}

// Publish routes envelope to every subscriber whose topic set contains
// envelope.RoutingKey (or who subscribed to all topics). Delivery to a full
// queue is retried a bounded number of times before being dropped, so a
// slow consumer cannot stall the publisher indefinitely.
func (b *Bus) Publish(envelope events.Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if !sub.wants(envelope.RoutingKey) {
			continue
		}
		delivered := false
		for i := 0; i < deliverRetries && !delivered; i++ {
			select {
			case sub.c <- envelope:
				delivered = true
			default:
			}
		}
	}
}

func (s *subscriber) wants(routingKey string) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[routingKey]
	return ok
}

// Subscribe registers a new subscriber for the given routing keys. Passing
// no keys subscribes to every topic.
func (b *Bus) Subscribe(topics ...string) *Subscription {
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	c := make(chan events.Envelope, queueSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.closed {
		close(c)
		return &Subscription{C: c, bus: b, id: id, c: c, topics: set}
	}
	b.subs[id] = &subscriber{id: id, c: c, topics: set}
	return &Subscription{C: c, bus: b, id: id, c: c, topics: set}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	if !b.closed {
		close(sub.c)
	}
}

// Close closes every subscriber channel and clears the registry.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.c)
	}
	b.subs = nil
}
