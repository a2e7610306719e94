package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultPublishAttempts = 5
	defaultPublishDelay    = 3 * time.Second
)

// Publisher serializes events and publishes them to durable queues with a
// bounded retry budget. Each attempt opens a fresh channel over the shared
// connection; the target queue is declared before every publish so a publish
// never fails on missing infra.
type Publisher struct {
	conns  ChannelOpener
	logger *log.Logger

	attempts   int
	retryDelay time.Duration
}

type PublisherOptions struct {
	// MaxAttempts bounds the total number of publish attempts. Default 5.
	MaxAttempts int
	// RetryDelay is the fixed pause between attempts. Default 3s.
	RetryDelay time.Duration
}

func NewPublisher(conns ChannelOpener, logger *log.Logger, opts PublisherOptions) *Publisher {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultPublishAttempts
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultPublishDelay
	}

	return &Publisher{
		conns:      conns,
		logger:     logger,
		attempts:   attempts,
		retryDelay: delay,
	}
}

// Publish marshals event to JSON and delivers it to queue, marked persistent.
// Transient failures are retried up to the attempt budget with a fixed delay;
// the last error is returned once the budget is exhausted. There is no
// payload deduplication: publishing twice delivers twice.
func (p *Publisher) Publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", event, err)
	}

	// One message id per logical publish, stable across retry attempts, so
	// consumers can count redeliveries of the same message.
	messageID := uuid.NewString()

	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		err := p.publishOnce(ctx, queue, messageID, body)
		if err == nil {
			p.logger.Printf("published %d bytes to %s", len(body), queue)
			return nil
		}

		lastErr = err
		p.logger.Printf("publish to %s failed (attempt %d/%d): %v", queue, attempt, p.attempts, err)

		if attempt == p.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("publish to %s: %w", queue, ctx.Err())
		case <-time.After(p.retryDelay):
		}
	}

	return fmt.Errorf("publish to %s after %d attempts: %w", queue, p.attempts, lastErr)
}

func (p *Publisher) publishOnce(ctx context.Context, queue, messageID string, body []byte) error {
	ch, err := p.conns.OpenChannel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := declareQueue(ch, queue); err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		"",    // default exchange
		queue, // queue name as routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
