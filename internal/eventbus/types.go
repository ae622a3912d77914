package eventbus

import "time"

// Topic identifies a logical channel on the bus.
type Topic string

// Standard topics.
const (
	// TopicRoomData carries inbound data-channel packets of a room.
	TopicRoomData Topic = "room.data"
	// TopicOrderSnapshot carries the projected order view after every accepted update.
	TopicOrderSnapshot Topic = "order.snapshot"
	// TopicProjectorDrop reports payloads the projector refused to decode.
	TopicProjectorDrop Topic = "projector.drop"
)

// Source describes which component produced an event.
type Source string

const (
	SourceRTCClient Source = "rtc_client"
	SourceRoom      Source = "room"
	SourceProjector Source = "projector"
	SourceUnknown   Source = "unknown"
)

// Envelope wraps every message published on the bus.
type Envelope struct {
	Topic     Topic
	Timestamp time.Time
	Source    Source
	Payload   any
}

// Overflow selects what a full subscription does with the next envelope.
type Overflow uint8

const (
	// KeepLatest evicts the oldest queued envelope to make room.
	KeepLatest Overflow = iota
	// KeepEarliest refuses the incoming envelope.
	KeepEarliest
)

func (o Overflow) String() string {
	switch o {
	case KeepEarliest:
		return "keep-earliest"
	default:
		return "keep-latest"
	}
}

// topicSpec is the per-topic queueing behaviour applied to new subscriptions.
type topicSpec struct {
	buffer   int
	overflow Overflow
}

// Order updates replace each other wholesale, so a slow reader only needs
// the newest ones. Drop reports are diagnostics and keep the first burst.
var defaultTopics = map[Topic]topicSpec{
	TopicRoomData:      {buffer: 256, overflow: KeepLatest},
	TopicOrderSnapshot: {buffer: 64, overflow: KeepLatest},
	TopicProjectorDrop: {buffer: 64, overflow: KeepEarliest},
}

var fallbackTopic = topicSpec{buffer: 16, overflow: KeepLatest}

// Observer is notified synchronously about every envelope published on a bus.
// Implementations must not block.
type Observer interface {
	OnPublish(env Envelope)
}

// Metrics summarises bus activity since construction.
type Metrics struct {
	PublishTotal uint64
	DroppedTotal uint64
}
