// SPDX-License-Identifier: MIT

// Package bus implements the in-process broadcast of persisted events to
// live subscribers. Delivery is at-most-once: a slow subscriber loses
// events, it never stalls the publisher.
package bus

import (
	"sync"

	"github.com/argus-video/argus/internal/domain"
	"github.com/argus-video/argus/internal/log"
	"github.com/argus-video/argus/internal/metrics"
	"github.com/google/uuid"
)

// SubscriberBuffer is the per-subscriber pending-event capacity.
const SubscriberBuffer = 1000

// Bus fans persisted events out to any number of subscribers.
type Bus struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

// Subscription is one live listener. Drain C until it is closed; Close is
// safe from any goroutine and idempotent.
type Subscription struct {
	id  string
	bus *Bus

	mu     sync.Mutex
	ch     chan domain.Event
	closed bool
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string]*Subscription)}
}

// Subscribe registers a new listener with a bounded buffer.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		id:  uuid.NewString(),
		ch:  make(chan domain.Event, SubscriberBuffer),
		bus: b,
	}
	b.mu.Lock()
	b.subs[sub.id] = sub
	n := len(b.subs)
	b.mu.Unlock()

	metrics.BusSubscribers.Set(float64(n))
	logger := log.WithComponent("bus")
	logger.Debug().
		Str(log.FieldSubscriberID, sub.id).
		Int("subscribers", n).
		Msg("subscriber registered")
	return sub
}

// Publish delivers e to every active subscriber without blocking. When a
// subscriber's buffer is full the event is dropped for that subscriber only.
// The subscriber set is snapshotted first, so Close during Publish is safe.
func (b *Bus) Publish(e domain.Event) {
	b.mu.Lock()
	snapshot := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.Unlock()

	metrics.BusPublishedTotal.Inc()
	for _, sub := range snapshot {
		if !sub.offer(e) {
			metrics.IncBusDrop("buffer_full")
			logger := log.WithComponent("bus")
			logger.Debug().
				Str(log.FieldSubscriberID, sub.id).
				Int64(log.FieldEventID, e.ID).
				Msg("subscriber buffer full, event dropped")
		}
	}
}

// Len returns the number of active subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) remove(id string) int {
	b.mu.Lock()
	delete(b.subs, id)
	n := len(b.subs)
	b.mu.Unlock()
	return n
}

// offer attempts a non-blocking enqueue. Sends and close are serialized on
// the subscription mutex so a publisher can never hit a closed channel.
func (s *Subscription) offer(e domain.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true // closed subscribers silently ignore publishes
	}
	select {
	case s.ch <- e:
		return true
	default:
		return false
	}
}

// C exposes the subscriber's event stream. It is closed on Close.
func (s *Subscription) C() <-chan domain.Event {
	return s.ch
}

// Close deregisters the subscription. Further publishes to it are no-ops and
// the consumer sees end-of-stream.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	n := s.bus.remove(s.id)
	metrics.BusSubscribers.Set(float64(n))
	logger := log.WithComponent("bus")
	logger.Debug().
		Str(log.FieldSubscriberID, s.id).
		Int("subscribers", n).
		Msg("subscriber deregistered")
}
