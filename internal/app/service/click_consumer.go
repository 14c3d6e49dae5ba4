package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/sifan077/shortlink/internal/app/repository"
	"go.uber.org/zap"
)

const (
	clickFetchBatch    = 10
	clickFetchTimeout  = 5 * time.Second
	clickHandleTimeout = 10 * time.Second
)

// clickSubscription is the part of *nats.Subscription the consume loop uses.
type clickSubscription interface {
	Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)
	Unsubscribe() error
}

// ackDecision tells the consume loop how to settle a message.
type ackDecision int

const (
	ackMessage ackDecision = iota
	nakMessage
	termMessage
)

// ClickConsumer consumes click events from NATS JetStream
type ClickConsumer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	links    repository.LinkRepository
	recorder ClickRecorder

	cancel context.CancelFunc
	done   chan struct{}
}

// NewClickConsumer creates a new click event consumer
func NewClickConsumer(js nats.JetStreamContext, logger *zap.Logger, links repository.LinkRepository, recorder ClickRecorder) *ClickConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickConsumer{js: js, logger: logger, links: links, recorder: recorder}
}

// Start ensures the stream exists and consumes in the background until ctx is done or
// Stop is called.
func (c *ClickConsumer) Start(ctx context.Context) error {
	if err := EnsureClickStream(c.js); err != nil {
		return err
	}

	sub, err := c.js.PullSubscribe(model.ClickStreamSubject, model.ClickConsumerName, nats.Bind(model.ClickStreamName, model.ClickConsumerName))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.run(ctx, sub)
	return nil
}

// Stop ends the consume loop and waits until the current batch is settled.
func (c *ClickConsumer) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *ClickConsumer) run(ctx context.Context, sub clickSubscription) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.consume(ctx, sub)
	}()
}

func (c *ClickConsumer) consume(ctx context.Context, sub clickSubscription) {
	defer func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			c.logger.Warn("failed to unsubscribe click consumer", zap.Error(err))
		}
	}()

	for ctx.Err() == nil {
		fetchCtx, cancel := context.WithTimeout(ctx, clickFetchTimeout)
		msgs, err := sub.Fetch(clickFetchBatch, nats.Context(fetchCtx))
		cancel()
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				continue
			}
			c.logger.Error("failed to fetch messages", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		// A fetched batch is finished even when stopping.
		handleCtx, cancelHandle := context.WithTimeout(context.WithoutCancel(ctx), clickHandleTimeout)
		for _, msg := range msgs {
			c.settle(msg, c.handle(handleCtx, msg.Data))
		}
		cancelHandle()
	}
	c.logger.Info("click consumer stopped")
}

func (c *ClickConsumer) settle(msg *nats.Msg, decision ackDecision) {
	var err error
	switch decision {
	case ackMessage:
		err = msg.Ack()
	case nakMessage:
		err = msg.Nak()
	case termMessage:
		err = msg.Term()
	}
	if err != nil {
		c.logger.Warn("failed to settle click message", zap.Error(err))
	}
}

// handle records one event. Redeliveries are acked, malformed or orphaned events are
// terminated and transient failures are retried.
func (c *ClickConsumer) handle(ctx context.Context, data []byte) ackDecision {
	var event model.ClickEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Error("failed to unmarshal click event", zap.Error(err))
		return termMessage
	}

	link, err := c.links.GetBySlug(ctx, event.Slug)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			c.logger.Warn("click event for unknown slug",
				zap.String("id", event.ID),
				zap.String("slug", event.Slug))
			return termMessage
		}
		c.logger.Error("failed to load link for click event",
			zap.String("id", event.ID),
			zap.String("slug", event.Slug),
			zap.Error(err))
		return nakMessage
	}

	_, err = c.recorder.RecordClick(ctx, link, ClickInput{
		IPAddress: event.IP,
		UserAgent: event.UserAgent,
		Referrer:  event.Referrer,
		EventID:   event.ID,
		Timestamp: event.Timestamp,
	})
	switch {
	case err == nil:
		c.logger.Debug("click event stored",
			zap.String("id", event.ID),
			zap.String("slug", event.Slug),
			zap.String("ip", event.IP),
			zap.Time("timestamp", event.Timestamp),
		)
		return ackMessage
	case errors.Is(err, repository.ErrDuplicateClick):
		c.logger.Debug("duplicate click event dropped", zap.String("id", event.ID))
		return ackMessage
	default:
		c.logger.Error("failed to store click event",
			zap.String("id", event.ID),
			zap.String("slug", event.Slug),
			zap.Error(err))
		return nakMessage
	}
}
