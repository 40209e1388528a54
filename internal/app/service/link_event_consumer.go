package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerOTP/internal/app/model"
	"go.uber.org/zap"
)

const (
	linkConsumerPrefix   = "links-"
	linkFetchBatch       = 100
	linkFetchWait        = 5 * time.Second
	linkConsumerInactive = time.Hour
)

// LinkEventConsumer feeds ids issued by any instance into the local id
// generator so it stops drawing them.
type LinkEventConsumer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	ids      *IDGenerator
	durable  string
	stopChan chan struct{}
	done     sync.WaitGroup
}

// NewLinkEventConsumer creates a consumer with a durable name unique to instance.
func NewLinkEventConsumer(js nats.JetStreamContext, logger *zap.Logger, ids *IDGenerator, instance string) *LinkEventConsumer {
	return &LinkEventConsumer{
		js:       js,
		logger:   logger,
		ids:      ids,
		durable:  linkConsumerPrefix + instance,
		stopChan: make(chan struct{}),
	}
}

// EnsureLinkStream creates the link event stream when it does not exist yet.
func EnsureLinkStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(model.LinkStreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:       model.LinkStreamName,
		Subjects:   []string{model.LinkCreatedSubject},
		MaxAge:     model.LinkStreamMaxAge,
		MaxBytes:   model.LinkStreamMaxBytes,
		Duplicates: 2 * time.Minute,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Start replays retained events and then follows new ones.
func (c *LinkEventConsumer) Start() error {
	if err := EnsureLinkStream(c.js); err != nil {
		return err
	}

	sub, err := c.js.PullSubscribe(model.LinkCreatedSubject, c.durable,
		nats.BindStream(model.LinkStreamName),
		nats.DeliverAll(),
		nats.AckExplicit(),
		nats.InactiveThreshold(linkConsumerInactive),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.done.Add(1)
	go c.consume(sub)
	return nil
}

// Stop ends the fetch loop and waits for it to return.
func (c *LinkEventConsumer) Stop() {
	close(c.stopChan)
	c.done.Wait()
}

func (c *LinkEventConsumer) consume(sub *nats.Subscription) {
	defer c.done.Done()
	defer func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			c.logger.Warn("failed to unsubscribe link events", zap.Error(err))
		}
	}()

	for {
		select {
		case <-c.stopChan:
			c.logger.Info("link event consumer stopped")
			return
		default:
		}

		msgs, err := sub.Fetch(linkFetchBatch, nats.MaxWait(linkFetchWait))
		if err != nil && !errors.Is(err, nats.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
			if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				c.logger.Info("link event subscription closed", zap.Error(err))
				return
			}
			c.logger.Error("failed to fetch link events", zap.Error(err))
			select {
			case <-time.After(time.Second):
			case <-c.stopChan:
				return
			}
			continue
		}

		for _, msg := range msgs {
			c.handle(msg)
		}
	}
}

func (c *LinkEventConsumer) handle(msg *nats.Msg) {
	var event model.LinkCreatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.Error("failed to unmarshal link event", zap.Error(err))
		// Redelivery cannot fix a malformed payload.
		_ = msg.Term()
		return
	}

	c.ids.Remember(event.ID)
	c.logger.Debug("link id remembered",
		zap.String("id", event.ID),
		zap.String("origin_instance", event.Instance),
	)

	if err := msg.Ack(); err != nil {
		c.logger.Warn("failed to ack link event", zap.String("id", event.ID), zap.Error(err))
	}
}
