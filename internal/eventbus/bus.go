// Package eventbus implements the Real-Time Dispatch Fabric (C1): an
// in-process pub/sub that delivers task/agent events to subscribers with
// per-subscriber bounded queues, drop-and-count backpressure, per-topic
// ordering, and round-robin fairness across subscribers sharing a topic.
package eventbus

import (
	"context"
	"sync"

	"github.com/ares-io/ares-core/internal/model"
	"github.com/ares-io/ares-core/internal/telemetry"
)

type (
	// Bus is the publish/subscribe contract exposed by the Event Fabric
	// (spec §4.1). Publish never blocks the caller; Subscribe returns a
	// handle yielding events for that subscription in publish order.
	Bus interface {
		// Publish routes event to every subscription whose pattern matches
		// event.Topic. If a subscription's queue is full, the event is
		// dropped and counted for that subscription only; Publish never
		// blocks on a slow or stalled subscriber.
		Publish(ctx context.Context, event model.Event)

		// Subscribe registers a new subscription matching pattern (an exact
		// topic, or model.SystemTopic for every event) with a bounded queue
		// of the given capacity. Close the returned Subscription to stop
		// delivery and release its queue.
		Subscribe(pattern string, capacity int) Subscription

		// Close closes every live subscription. Publish becomes a no-op
		// afterward. Used on shutdown once in-flight work has drained.
		Close()
	}

	// Subscription is a consumer handle returned by Subscribe. Events is a
	// channel yielding events in publish order for this subscription;
	// closing the subscription closes Events.
	Subscription interface {
		Events() <-chan model.Event
		Dropped() uint64
		Close()
	}

	bus struct {
		mu              sync.RWMutex
		byTopic         map[string][]*subscription
		nextRoundRobin  map[string]int
		telemetry       telemetry.Set
		defaultCapacity int
	}

	subscription struct {
		bus       *bus
		pattern   string
		queue     chan model.Event
		dropped   atomicCounter
		closeOnce sync.Once
		closed    chan struct{}
	}
)

// DefaultQueueCapacity is used when Subscribe is called with a non-positive
// capacity.
const DefaultQueueCapacity = 1

// NewBus constructs an empty Event Fabric. defaultCapacity backs Subscribe
// calls that pass a non-positive capacity; non-positive here falls back to
// DefaultQueueCapacity.
func NewBus(tel telemetry.Set, defaultCapacity int) Bus {
	if defaultCapacity <= 0 {
		defaultCapacity = DefaultQueueCapacity
	}
	return &bus{
		byTopic:         make(map[string][]*subscription),
		nextRoundRobin:  make(map[string]int),
		telemetry:       tel,
		defaultCapacity: defaultCapacity,
	}
}

// Publish implements Bus. Delivery to each matching subscriber's queue is a
// non-blocking send; a full queue causes the event to be dropped for that
// subscriber and its drop counter incremented.
func (b *bus) Publish(ctx context.Context, event model.Event) {
	b.mu.RLock()
	matching := append([]*subscription(nil), b.byTopic[event.Topic]...)
	if event.Topic != model.SystemTopic {
		matching = append(matching, b.byTopic[model.SystemTopic]...)
	}
	start := b.nextRoundRobin[event.Topic]
	b.mu.RUnlock()

	n := len(matching)
	if n == 0 {
		return
	}
	for i := 0; i < n; i++ {
		sub := matching[(start+i)%n]
		select {
		case sub.queue <- event:
		default:
			sub.dropped.add(1)
			b.telemetry.Metrics.IncCounter("eventbus.dropped", 1, "topic", event.Topic)
		}
	}

	b.mu.Lock()
	b.nextRoundRobin[event.Topic] = (start + 1) % n
	b.mu.Unlock()
}

// Subscribe implements Bus.
func (b *bus) Subscribe(pattern string, capacity int) Subscription {
	if capacity <= 0 {
		capacity = b.defaultCapacity
	}
	sub := &subscription{
		pattern: pattern,
		queue:   make(chan model.Event, capacity),
		closed:  make(chan struct{}),
	}
	sub.bus = b

	b.mu.Lock()
	b.byTopic[pattern] = append(b.byTopic[pattern], sub)
	b.mu.Unlock()

	return sub
}

// Close implements Bus. Safe to call more than once.
func (b *bus) Close() {
	b.mu.Lock()
	all := make([]*subscription, 0)
	for _, subs := range b.byTopic {
		all = append(all, subs...)
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
}

func (s *subscription) Events() <-chan model.Event {
	return s.queue
}

func (s *subscription) Dropped() uint64 {
	return s.dropped.load()
}

func (s *subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.mu.Lock()
		subs := s.bus.byTopic[s.pattern]
		for i, other := range subs {
			if other == s {
				s.bus.byTopic[s.pattern] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.bus.mu.Unlock()
		close(s.closed)
		close(s.queue)
	})
}
