package service

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerOTP/internal/app/model"
)

// natsLinkPublisher sends link events over JetStream, deduplicated by link id.
type natsLinkPublisher struct {
	js       nats.JetStreamContext
	instance string
}

// NewLinkEventPublisher publishes link created events to JetStream.
func NewLinkEventPublisher(js nats.JetStreamContext, instance string) LinkEventPublisher {
	return &natsLinkPublisher{js: js, instance: instance}
}

func (p *natsLinkPublisher) PublishLinkCreated(ctx context.Context, link *model.ShareLink) error {
	event := model.LinkCreatedEvent{
		ID:        link.ID,
		ExpiresAt: link.ExpiresAt,
		Instance:  p.instance,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.LinkCreatedSubject, data, nats.Context(ctx), nats.MsgId(link.ID))
	return err
}
