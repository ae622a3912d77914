package rtc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brewbean/livecup/internal/eventbus"
)

// ErrNotConnected is returned by PublishData when the room has no transport.
var ErrNotConnected = errors.New("rtc: room is not connected")

// ErrRoomClosed is returned by PublishData after Close.
var ErrRoomClosed = errors.New("rtc: room is closed")

// Publisher sends locally produced packets to the other participants.
type Publisher interface {
	Send(ctx context.Context, packet DataPacket) error
}

// Room is a lifecycle-scoped session handle. Inbound packets handed to
// Deliver are fanned out to every listener registered through HandleData.
type Room struct {
	name string
	bus  *eventbus.Bus

	mu        sync.RWMutex
	publisher Publisher
	closed    atomic.Bool
}

// RoomOption customises a room.
type RoomOption func(*roomConfig)

type roomConfig struct {
	busOpts []eventbus.BusOption
}

// WithBusOptions forwards options to the room's private event bus.
func WithBusOptions(opts ...eventbus.BusOption) RoomOption {
	return func(cfg *roomConfig) {
		cfg.busOpts = append(cfg.busOpts, opts...)
	}
}

// NewRoom creates a disconnected room.
func NewRoom(name string, opts ...RoomOption) *Room {
	var cfg roomConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Room{
		name: name,
		bus:  eventbus.New(cfg.busOpts...),
	}
}

// Name returns the room name.
func (r *Room) Name() string {
	return r.name
}

// HandleData registers fn as a data listener that runs inside Deliver, in
// arrival order and without a queue. fn must not block. Closing the returned
// subscription removes the listener and waits for a call in flight.
func (r *Room) HandleData(fn func(DataPacket), opts ...eventbus.SubscriptionOption) *eventbus.Subscription {
	return eventbus.ListenTo(r.bus, DataTopic, func(env eventbus.TypedEnvelope[DataPacket]) {
		fn(env.Payload)
	}, opts...)
}

// ListenerCount reports how many data listeners are registered.
func (r *Room) ListenerCount() int {
	return r.bus.SubscriberCount(DataTopic.Topic())
}

// Deliver hands an inbound packet to every listener.
func (r *Room) Deliver(ctx context.Context, packet DataPacket) {
	r.deliver(ctx, eventbus.SourceRoom, packet)
}

func (r *Room) deliver(ctx context.Context, source eventbus.Source, packet DataPacket) {
	if r.closed.Load() {
		return
	}
	if packet.ReceivedAt.IsZero() {
		packet.ReceivedAt = time.Now().UTC()
	}
	if packet.Kind == "" {
		packet.Kind = KindReliable
	}
	eventbus.Publish(ctx, r.bus, DataTopic, source, packet,
		eventbus.WithTimestamp(packet.ReceivedAt))
}

// SetPublisher attaches the transport used by PublishData.
func (r *Room) SetPublisher(p Publisher) {
	r.mu.Lock()
	r.publisher = p
	r.mu.Unlock()
}

// DataOption customises an outbound packet.
type DataOption func(*DataPacket)

// WithTopic tags the packet with an application topic.
func WithTopic(topic string) DataOption {
	return func(p *DataPacket) { p.Topic = topic }
}

// WithKind selects reliable or lossy delivery.
func WithKind(kind PacketKind) DataOption {
	return func(p *DataPacket) { p.Kind = kind }
}

// PublishData sends payload to the other participants of the room.
func (r *Room) PublishData(ctx context.Context, payload []byte, opts ...DataOption) error {
	if r.closed.Load() {
		return ErrRoomClosed
	}
	packet := DataPacket{Payload: payload, Kind: KindReliable}
	for _, opt := range opts {
		opt(&packet)
	}

	r.mu.RLock()
	publisher := r.publisher
	r.mu.RUnlock()
	if publisher == nil {
		return ErrNotConnected
	}
	return publisher.Send(ctx, packet)
}

// Close drops every listener and stops delivery.
func (r *Room) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	r.SetPublisher(nil)
	r.bus.Shutdown()
}
