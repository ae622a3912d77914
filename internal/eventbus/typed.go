package eventbus

import (
	"context"
	"time"
)

// TopicDef ties a topic to the one payload type allowed on it.
type TopicDef[T any] struct{ topic Topic }

// NewTopicDef declares that topic carries payloads of type T.
func NewTopicDef[T any](topic Topic) TopicDef[T] { return TopicDef[T]{topic: topic} }

// Topic returns the underlying topic.
func (d TopicDef[T]) Topic() Topic { return d.topic }

// TypedEnvelope is an Envelope whose payload has already been asserted to T.
type TypedEnvelope[T any] struct {
	Topic     Topic
	Timestamp time.Time
	Source    Source
	Payload   T
}

func narrow[T any](env Envelope) (TypedEnvelope[T], bool) {
	payload, ok := env.Payload.(T)
	if !ok {
		return TypedEnvelope[T]{}, false
	}
	return TypedEnvelope[T]{
		Topic:     env.Topic,
		Timestamp: env.Timestamp,
		Source:    env.Source,
		Payload:   payload,
	}, true
}

// PublishOption adjusts the envelope built by Publish.
type PublishOption func(*Envelope)

// WithTimestamp replaces the publish-time stamp, e.g. with a packet's receive time.
func WithTimestamp(ts time.Time) PublishOption {
	return func(env *Envelope) { env.Timestamp = ts }
}

// Publish sends payload on td's topic. A nil bus drops it.
func Publish[T any](ctx context.Context, bus *Bus, td TopicDef[T], source Source, payload T, opts ...PublishOption) {
	env := Envelope{Topic: td.topic, Source: source, Payload: payload}
	for _, opt := range opts {
		opt(&env)
	}
	bus.Publish(ctx, env)
}

// ListenTo runs fn for every payload published on td's topic. See Bus.Listen.
func ListenTo[T any](bus *Bus, td TopicDef[T], fn func(TypedEnvelope[T]), opts ...SubscriptionOption) *Subscription {
	if fn == nil {
		return closedSubscription()
	}
	return bus.Listen(td.topic, func(env Envelope) {
		if typed, ok := narrow[T](env); ok {
			fn(typed)
		}
	}, opts...)
}

// TypedSubscription delivers the envelopes of a topic whose payload is a T.
// Other payloads are skipped.
type TypedSubscription[T any] struct {
	raw  *Subscription
	ch   chan TypedEnvelope[T]
	done chan struct{}
}

// SubscribeTo subscribes to td's topic with td's payload type.
func SubscribeTo[T any](bus *Bus, td TopicDef[T], opts ...SubscriptionOption) *TypedSubscription[T] {
	return Subscribe[T](bus, td.topic, opts...)
}

// Subscribe subscribes to topic and filters payloads down to T.
// The typed channel is unbuffered; queueing happens in the raw subscription.
// On a nil bus the channel is closed immediately.
func Subscribe[T any](bus *Bus, topic Topic, opts ...SubscriptionOption) *TypedSubscription[T] {
	ts := &TypedSubscription[T]{
		raw:  bus.Subscribe(topic, opts...),
		ch:   make(chan TypedEnvelope[T]),
		done: make(chan struct{}),
	}
	go ts.pump()
	return ts
}

// C returns the typed event channel.
func (ts *TypedSubscription[T]) C() <-chan TypedEnvelope[T] {
	return ts.ch
}

// Dropped reports envelopes lost by the underlying queue.
func (ts *TypedSubscription[T]) Dropped() uint64 {
	return ts.raw.Dropped()
}

// Close ends the subscription and waits for the forwarding goroutine.
// It is safe to call more than once.
func (ts *TypedSubscription[T]) Close() {
	ts.raw.Close()
	<-ts.done
}

func (ts *TypedSubscription[T]) pump() {
	defer close(ts.done)
	defer close(ts.ch)

	for env := range ts.raw.C() {
		typed, ok := narrow[T](env)
		if !ok {
			continue
		}
		select {
		case ts.ch <- typed:
		case <-ts.raw.Done():
			return
		}
	}
}
