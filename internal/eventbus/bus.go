package eventbus

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Bus routes envelopes from publishers to the subscriptions of a topic.
// A nil *Bus is usable: publishing does nothing and subscriptions are born closed.
type Bus struct {
	logger    *log.Logger
	observers []Observer
	specs     map[Topic]topicSpec

	mu     sync.RWMutex
	routes map[Topic]map[uint64]*Subscription
	seq    atomic.Uint64

	published atomic.Uint64
	dropped   atomic.Uint64
}

// BusOption customises bus behaviour.
type BusOption func(*Bus)

// New constructs a bus using the standard topic table.
func New(opts ...BusOption) *Bus {
	b := &Bus{
		logger: log.Default(),
		specs:  make(map[Topic]topicSpec, len(defaultTopics)),
		routes: make(map[Topic]map[uint64]*Subscription),
	}
	for topic, spec := range defaultTopics {
		b.specs[topic] = spec
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithLogger overrides the logger used for drop warnings.
func WithLogger(logger *log.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTopicBuffer sets the queue length new subscriptions of topic get.
func WithTopicBuffer(topic Topic, size int) BusOption {
	return func(b *Bus) {
		spec := b.spec(topic)
		spec.buffer = max(size, 1)
		b.specs[topic] = spec
	}
}

// WithOverflow sets what subscriptions of topic do when their queue is full.
func WithOverflow(topic Topic, overflow Overflow) BusOption {
	return func(b *Bus) {
		spec := b.spec(topic)
		spec.overflow = overflow
		b.specs[topic] = spec
	}
}

// WithObserver registers an observer that sees every published envelope.
func WithObserver(observer Observer) BusOption {
	return func(b *Bus) {
		if observer != nil {
			b.observers = append(b.observers, observer)
		}
	}
}

func (b *Bus) spec(topic Topic) topicSpec {
	if spec, ok := b.specs[topic]; ok {
		return spec
	}
	return fallbackTopic
}

// Publish stamps env and offers it to every subscription of its topic.
// Envelopes without a topic are discarded.
func (b *Bus) Publish(ctx context.Context, env Envelope) {
	if b == nil || env.Topic == "" {
		return
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now().UTC()
	}
	if env.Source == "" {
		env.Source = SourceUnknown
	}
	b.published.Add(1)

	for _, observer := range b.observers {
		observer.OnPublish(env)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.routes[env.Topic] {
		sub.offer(ctx, env)
	}
}

// Metrics returns publish and drop totals.
func (b *Bus) Metrics() Metrics {
	if b == nil {
		return Metrics{}
	}
	return Metrics{
		PublishTotal: b.published.Load(),
		DroppedTotal: b.dropped.Load(),
	}
}

// SubscriberCount reports how many live subscriptions a topic has.
func (b *Bus) SubscriberCount(topic Topic) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.routes[topic])
}

// Subscribe registers a subscription for topic.
func (b *Bus) Subscribe(topic Topic, opts ...SubscriptionOption) *Subscription {
	if b == nil {
		return closedSubscription()
	}

	spec := b.spec(topic)
	cfg := subscriptionConfig{bufferSize: spec.buffer}
	for _, opt := range opts {
		opt(&cfg)
	}

	return b.register(&Subscription{
		topic:    topic,
		name:     cfg.name,
		overflow: spec.overflow,
		ch:       make(chan Envelope, max(cfg.bufferSize, 1)),
	})
}

// Listen registers fn to run for every envelope on topic. Nothing is queued:
// fn runs in the publisher's goroutine while the bus read lock is held, so it
// must not block or publish on the same bus. Close waits for calls in flight.
func (b *Bus) Listen(topic Topic, fn func(Envelope), opts ...SubscriptionOption) *Subscription {
	if b == nil || fn == nil {
		return closedSubscription()
	}
	var cfg subscriptionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return b.register(&Subscription{
		topic:  topic,
		name:   cfg.name,
		listen: fn,
		ch:     make(chan Envelope),
	})
}

func (b *Bus) register(sub *Subscription) *Subscription {
	sub.bus = b
	sub.id = b.seq.Add(1)
	sub.done = make(chan struct{})

	b.mu.Lock()
	subs := b.routes[sub.topic]
	if subs == nil {
		subs = make(map[uint64]*Subscription)
		b.routes[sub.topic] = subs
	}
	subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// Shutdown closes every subscription and forgets all routes.
func (b *Bus) Shutdown() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subs := range b.routes {
		for _, sub := range subs {
			sub.shut()
		}
	}
	b.routes = make(map[Topic]map[uint64]*Subscription)
}

// SubscriptionOption customises individual subscriptions.
type SubscriptionOption func(*subscriptionConfig)

type subscriptionConfig struct {
	bufferSize int
	name       string
}

// WithSubscriptionBuffer overrides the queue length for one subscription.
func WithSubscriptionBuffer(size int) SubscriptionOption {
	return func(cfg *subscriptionConfig) {
		if size > 0 {
			cfg.bufferSize = size
		}
	}
}

// WithSubscriptionName labels the subscription in drop warnings.
func WithSubscriptionName(name string) SubscriptionOption {
	return func(cfg *subscriptionConfig) {
		cfg.name = name
	}
}
