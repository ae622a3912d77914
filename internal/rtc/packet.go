// Package rtc provides the real-time room that delivers data-channel packets
// to local listeners, and a websocket client that connects a room to a relay hub.
package rtc

import (
	"time"

	"github.com/brewbean/livecup/internal/eventbus"
)

// PacketKind mirrors the reliability class a packet was sent with.
type PacketKind string

const (
	KindReliable PacketKind = "reliable"
	KindLossy    PacketKind = "lossy"
)

// DataPacket is one inbound data-channel message together with its metadata.
type DataPacket struct {
	Payload     []byte
	Participant string
	Kind        PacketKind
	Topic       string
	ReceivedAt  time.Time
}

// DataTopic is the bus topic a room publishes inbound packets on.
var DataTopic = eventbus.NewTopicDef[DataPacket](eventbus.TopicRoomData)
