package eventbus

import (
	"context"
	"sync/atomic"
)

// Subscription is one consumer on a topic: a bounded queue, or a callback
// when created by Listen.
type Subscription struct {
	bus      *Bus
	topic    Topic
	id       uint64
	name     string
	overflow Overflow
	listen   func(Envelope)

	ch      chan Envelope
	done    chan struct{}
	closed  atomic.Bool
	dropped atomic.Uint64
}

func closedSubscription() *Subscription {
	sub := &Subscription{
		ch:   make(chan Envelope),
		done: make(chan struct{}),
	}
	sub.shut()
	return sub
}

// C exposes the event channel. It is closed when the subscription ends.
// Subscriptions created by Listen never send on it.
func (s *Subscription) C() <-chan Envelope {
	return s.ch
}

// Done is closed as soon as the subscription starts closing.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Dropped reports how many envelopes this subscription lost to a full queue.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close removes the subscription from its bus and closes the channel.
// Repeated calls are no-ops.
func (s *Subscription) Close() {
	if s.bus == nil {
		s.shut()
		return
	}
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.shut() {
		delete(s.bus.routes[s.topic], s.id)
	}
}

// shut closes the channels once and reports whether this call did it.
// Callers attached to a bus hold its write lock.
func (s *Subscription) shut() bool {
	if !s.closed.CompareAndSwap(false, true) {
		return false
	}
	close(s.done)
	close(s.ch)
	return true
}

// offer hands env to the listener or enqueues it without blocking. Publish
// holds the bus read lock, so the channel cannot be closed underneath it.
func (s *Subscription) offer(ctx context.Context, env Envelope) {
	if s.closed.Load() || ctx.Err() != nil {
		return
	}
	if s.listen != nil {
		s.listen(env)
		return
	}

	select {
	case s.ch <- env:
		return
	default:
	}

	if s.overflow == KeepEarliest {
		s.drop("refused")
		return
	}

	select {
	case <-s.ch:
		s.drop("evicted")
	default:
	}
	select {
	case s.ch <- env:
	default:
		s.drop("refused")
	}
}

func (s *Subscription) drop(reason string) {
	n := s.dropped.Add(1)
	s.bus.dropped.Add(1)

	name := s.name
	if name == "" {
		name = "subscription"
	}
	s.bus.logger.Printf("[eventbus] dropped event #%d for %s on topic %s (%s, %s)", n, name, s.topic, reason, s.overflow)
}
