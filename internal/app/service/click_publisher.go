package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/shortlink/internal/app/model"
)

// JetStreamPublisher is the slice of nats.JetStreamContext the publisher needs.
type JetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// ClickPublisher publishes click events to NATS JetStream
type ClickPublisher struct {
	js  JetStreamPublisher
	now func() time.Time
}

// NewClickPublisher creates a new click event publisher
func NewClickPublisher(js JetStreamPublisher) *ClickPublisher {
	return &ClickPublisher{js: js, now: time.Now}
}

// Publish sends one click event. The event id doubles as the JetStream message id,
// so a retried publish inside the duplicate window is stored once.
func (p *ClickPublisher) Publish(ctx context.Context, slug string, input ClickInput) (*model.ClickEvent, error) {
	event := &model.ClickEvent{
		ID:        input.EventID,
		Slug:      slug,
		IP:        input.IPAddress,
		UserAgent: input.UserAgent,
		Referrer:  input.Referrer,
		Timestamp: input.Timestamp,
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	event.Timestamp = event.Timestamp.UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode click event: %w", err)
	}

	if _, err := p.js.Publish(model.ClickStreamSubject, data, nats.MsgId(event.ID), nats.Context(ctx)); err != nil {
		return nil, fmt.Errorf("publish click event: %w", err)
	}
	return event, nil
}

// EnsureClickStream creates the click stream and its durable consumer when missing.
func EnsureClickStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(model.ClickStreamName); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("lookup stream: %w", err)
		}
		if _, err := js.AddStream(&nats.StreamConfig{
			Name:       model.ClickStreamName,
			Subjects:   []string{model.ClickStreamSubject},
			MaxBytes:   model.ClickStreamMaxBytes,
			Duplicates: 2 * time.Minute,
		}); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	if _, err := js.ConsumerInfo(model.ClickStreamName, model.ClickConsumerName); err != nil {
		if !errors.Is(err, nats.ErrConsumerNotFound) {
			return fmt.Errorf("lookup consumer: %w", err)
		}
		if _, err := js.AddConsumer(model.ClickStreamName, &nats.ConsumerConfig{
			Durable:       model.ClickConsumerName,
			AckPolicy:     nats.AckExplicitPolicy,
			FilterSubject: model.ClickStreamSubject,
			MaxDeliver:    model.ClickMaxDeliver,
		}); err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}
	return nil
}
