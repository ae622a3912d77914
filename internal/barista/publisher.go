package barista

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/brewbean/livecup/internal/datachannel"
	"github.com/brewbean/livecup/internal/ledger"
	"github.com/brewbean/livecup/internal/rtc"
)

// DataSender publishes payloads to the other participants of a room.
type DataSender interface {
	PublishData(ctx context.Context, payload []byte, opts ...rtc.DataOption) error
}

type orderData struct {
	DrinkType *string  `json:"drinkType"`
	Size      *string  `json:"size"`
	Milk      *string  `json:"milk"`
	Extras    []string `json:"extras"`
	Name      *string  `json:"name"`
}

type orderEnvelope struct {
	Type string    `json:"type"`
	Data orderData `json:"data"`
}

// EncodeOrderUpdate renders o as an order_update message. Unset fields are
// sent as null and extras is always a list.
func EncodeOrderUpdate(o ledger.Order) ([]byte, error) {
	extras := o.Extras
	if extras == nil {
		extras = []string{}
	}
	data, err := json.Marshal(orderEnvelope{
		Type: datachannel.TypeOrderUpdate,
		Data: orderData{
			DrinkType: nullable(o.DrinkType),
			Size:      nullable(o.Size),
			Milk:      nullable(o.Milk),
			Extras:    extras,
			Name:      nullable(o.Name),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("barista: encode order update: %w", err)
	}
	return data, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Publisher mirrors the order state to the room after every change.
type Publisher struct {
	sender DataSender
	topic  string
	logger *log.Logger
}

// PublisherOption customises a publisher.
type PublisherOption func(*Publisher)

// WithPublishTopic sends updates on a named data topic.
func WithPublishTopic(topic string) PublisherOption {
	return func(p *Publisher) {
		p.topic = topic
	}
}

// WithPublisherLogger overrides the publisher logger.
func WithPublisherLogger(logger *log.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher creates a publisher sending through sender.
func NewPublisher(sender DataSender, opts ...PublisherOption) *Publisher {
	p := &Publisher{sender: sender, logger: log.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishOrder sends the current state reliably.
func (p *Publisher) PublishOrder(ctx context.Context, state *OrderState) error {
	payload, err := EncodeOrderUpdate(state.Order())
	if err != nil {
		return err
	}

	opts := []rtc.DataOption{rtc.WithKind(rtc.KindReliable)}
	if p.topic != "" {
		opts = append(opts, rtc.WithTopic(p.topic))
	}
	if err := p.sender.PublishData(ctx, payload, opts...); err != nil {
		p.logger.Printf("[barista] failed to publish order update: %v", err)
		return fmt.Errorf("barista: publish order update: %w", err)
	}
	p.logger.Printf("[barista] published order update")
	return nil
}
