package rtc

import (
	"encoding/json"
	"fmt"
)

// Frame is the JSON text message exchanged with the relay hub.
// Payload is base64 on the wire.
type Frame struct {
	Participant string     `json:"participant,omitempty"`
	Kind        PacketKind `json:"kind,omitempty"`
	Topic       string     `json:"topic,omitempty"`
	Payload     []byte     `json:"payload"`
}

// EncodeFrame marshals a frame for transmission.
func EncodeFrame(f Frame) ([]byte, error) {
	if f.Kind == "" {
		f.Kind = KindReliable
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("rtc: encode frame: %w", err)
	}
	return data, nil
}

// DecodeFrame parses a frame received from the hub.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("rtc: decode frame: %w", err)
	}
	if f.Kind == "" {
		f.Kind = KindReliable
	}
	return f, nil
}

// Packet converts a frame into an inbound data packet.
func (f Frame) Packet() DataPacket {
	return DataPacket{
		Payload:     f.Payload,
		Participant: f.Participant,
		Kind:        f.Kind,
		Topic:       f.Topic,
	}
}
