// Package projector keeps the live order view in sync with a room's data
// channel. It owns the room listener, decodes and routes every inbound packet
// as it arrives, and replaces the order snapshot held by its Store with the
// newest routed update.
package projector

import (
	"context"
	"log"
	"reflect"
	"sync"

	"github.com/brewbean/livecup/internal/datachannel"
	"github.com/brewbean/livecup/internal/eventbus"
	"github.com/brewbean/livecup/internal/rtc"
)

// Channel is a session handle that accepts data listeners.
type Channel interface {
	HandleData(fn func(rtc.DataPacket), opts ...eventbus.SubscriptionOption) *eventbus.Subscription
}

// Outcome classifies what happened to one inbound packet.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	// OutcomeSuperseded marks an update replaced by a newer one before it
	// reached the store.
	OutcomeSuperseded Outcome = "superseded"
	OutcomeIgnored    Outcome = "ignored"
	OutcomeDropped    Outcome = "dropped"
)

// Recorder receives one outcome per processed packet.
type Recorder interface {
	RecordMessage(outcome Outcome)
}

// DropEvent describes a payload that failed to decode.
type DropEvent struct {
	Participant string
	Topic       string
	Err         string
}

// DropTopic carries decode failures for diagnostics.
var DropTopic = eventbus.NewTopicDef[DropEvent](eventbus.TopicProjectorDrop)

// Option customises a projector.
type Option func(*Projector)

// WithLogger overrides the logger used for decode diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(p *Projector) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder installs a metrics sink.
func WithRecorder(r Recorder) Option {
	return func(p *Projector) {
		p.recorder = r
	}
}

// WithTopicFilter restricts processing to packets sent on topic.
// The default accepts every packet regardless of topic.
func WithTopicFilter(topic string) Option {
	return func(p *Projector) {
		p.topic = topic
	}
}

// Projector binds to at most one room at a time and projects its order
// updates into a Store.
type Projector struct {
	store    *Store
	logger   *log.Logger
	recorder Recorder
	topic    string

	mu      sync.Mutex
	channel Channel
	sub     *eventbus.Subscription
	cancel  context.CancelFunc
	applied <-chan struct{}
	closed  bool
}

// New creates an unbound projector writing into store.
func New(store *Store, opts ...Option) *Projector {
	if store == nil {
		store = NewStore(nil)
	}
	p := &Projector{
		store:  store,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store exposes the read side of the projection.
func (p *Projector) Store() *Store {
	return p.store
}

// Bind attaches the projector to ch. Binding the handle that is already bound
// is a no-op; binding a different handle releases the previous listener
// first; binding nil is equivalent to Detach. The current snapshot is kept
// across rebinding.
func (p *Projector) Bind(ch Channel) {
	if isNilChannel(ch) {
		p.Detach()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.channel == ch {
		return
	}
	p.detachLocked()

	ctx, cancel := context.WithCancel(context.Background())
	box := newMailbox()

	p.channel = ch
	p.cancel = cancel
	p.applied = box.drain(ctx, p.apply)
	p.sub = ch.HandleData(func(packet rtc.DataPacket) {
		p.route(ctx, box, packet)
	}, eventbus.WithSubscriptionName("projector"))
}

// Detach releases the listener and waits until no packet is in flight.
// The snapshot keeps its last value.
func (p *Projector) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detachLocked()
}

// Close detaches and discards the snapshot; Updates subscribers receive the
// empty view. A closed projector cannot be bound again.
func (p *Projector) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.detachLocked()
	p.store.reset(context.Background())
}

// Bound reports whether a listener is currently registered.
func (p *Projector) Bound() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel != nil
}

func (p *Projector) detachLocked() {
	if p.channel == nil {
		return
	}
	p.sub.Close()
	p.cancel()
	<-p.applied

	p.channel = nil
	p.sub = nil
	p.cancel = nil
	p.applied = nil
}

// route decodes one packet inside the room's Deliver. Only order updates
// reach the mailbox, so unrelated traffic cannot displace them.
func (p *Projector) route(ctx context.Context, box *mailbox, packet rtc.DataPacket) {
	if p.topic != "" && packet.Topic != p.topic {
		box.note(OutcomeIgnored)
		return
	}

	msg, err := datachannel.Decode(packet.Payload)
	if err != nil {
		p.logger.Printf("[projector] error parsing order data from %q: %v", packet.Participant, err)
		eventbus.Publish(ctx, p.store.bus, DropTopic, eventbus.SourceProjector, DropEvent{
			Participant: packet.Participant,
			Topic:       packet.Topic,
			Err:         err.Error(),
		})
		box.note(OutcomeDropped)
		return
	}

	switch m := msg.(type) {
	case datachannel.OrderUpdate:
		box.put(m.Order)
	default:
		box.note(OutcomeIgnored)
	}
}

// apply writes the newest pending update and reports every outcome.
// A write already in progress completes even if Detach races it.
func (p *Projector) apply(d delivery) {
	if d.snapshot != nil {
		p.store.replace(context.Background(), *d.snapshot)
		p.record(OutcomeAccepted)
	}
	p.recordN(OutcomeSuperseded, d.superseded)
	p.recordN(OutcomeIgnored, d.ignored)
	p.recordN(OutcomeDropped, d.dropped)
}

func (p *Projector) record(outcome Outcome) {
	p.recordN(outcome, 1)
}

func (p *Projector) recordN(outcome Outcome, n int) {
	if p.recorder == nil {
		return
	}
	for i := 0; i < n; i++ {
		p.recorder.RecordMessage(outcome)
	}
}

func isNilChannel(ch Channel) bool {
	if ch == nil {
		return true
	}
	v := reflect.ValueOf(ch)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
