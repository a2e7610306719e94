package messaging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultConnectAttempts = 10
	defaultConnectDelay    = 3 * time.Second
	defaultMaxDeliveries   = 5
	defaultBackoffBase     = 500 * time.Millisecond
	defaultPrefetch        = 8

	maxBackoff = 30 * time.Second
)

// DeadLetterSuffix is appended to a queue name to form its dead-letter queue.
const DeadLetterSuffix = ".dead"

type poisonError struct {
	err error
}

func (e *poisonError) Error() string { return e.err.Error() }
func (e *poisonError) Unwrap() error { return e.err }

// Poison marks err as unrecoverable by redelivery (e.g. a payload that will
// never decode). The consumer acks and drops such messages instead of
// requeueing them.
func Poison(err error) error {
	return &poisonError{err: err}
}

func IsPoison(err error) bool {
	var p *poisonError
	return errors.As(err, &p)
}

// HandlerFunc processes one raw message body. Returning nil acks the message.
// Returning an error requeues it for redelivery, unless the error is marked
// with Poison. Handlers may be invoked concurrently for distinct messages and
// must not share unsynchronized mutable state.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer subscribes to one durable queue with manual acknowledgment.
// Handler failures are redelivered with exponential backoff, bounded by a
// per-message attempt cap; messages that exhaust the cap are moved to the
// queue's dead-letter queue instead of requeueing forever.
type Consumer struct {
	url    string
	tag    string
	logger *log.Logger

	connectAttempts int
	connectDelay    time.Duration
	maxDeliveries   int
	backoffBase     time.Duration
	prefetch        int

	mu       sync.Mutex
	failures map[string]int
}

type ConsumerOptions struct {
	// Tag identifies this consumer to the broker.
	Tag string
	// ConnectAttempts bounds startup connection retries. Default 10.
	ConnectAttempts int
	// ConnectDelay is the fixed pause between startup retries. Default 3s.
	ConnectDelay time.Duration
	// MaxDeliveries caps handler attempts per message before dead-lettering.
	// Default 5; set negative to disable the cap.
	MaxDeliveries int
	// BackoffBase is the first redelivery backoff, doubled per attempt.
	BackoffBase time.Duration
	// Prefetch is the number of unacknowledged messages in flight. Default 8.
	Prefetch int
}

func NewConsumer(url string, logger *log.Logger, opts ConsumerOptions) *Consumer {
	c := &Consumer{
		url:             url,
		tag:             opts.Tag,
		logger:          logger,
		connectAttempts: opts.ConnectAttempts,
		connectDelay:    opts.ConnectDelay,
		maxDeliveries:   opts.MaxDeliveries,
		backoffBase:     opts.BackoffBase,
		prefetch:        opts.Prefetch,
		failures:        make(map[string]int),
	}
	if c.connectAttempts <= 0 {
		c.connectAttempts = defaultConnectAttempts
	}
	if c.connectDelay <= 0 {
		c.connectDelay = defaultConnectDelay
	}
	if c.maxDeliveries == 0 {
		c.maxDeliveries = defaultMaxDeliveries
	}
	if c.backoffBase <= 0 {
		c.backoffBase = defaultBackoffBase
	}
	if c.prefetch <= 0 {
		c.prefetch = defaultPrefetch
	}
	return c
}

// Run connects, declares queue and its dead-letter queue, and blocks
// dispatching deliveries to handler until ctx is cancelled or the broker
// drops the subscription. Startup connection failures are retried with a
// fixed delay; exhausting the budget is fatal and the hosting process should
// not report healthy.
func (c *Consumer) Run(ctx context.Context, queue string, handler HandlerFunc) error {
	conn, ch, err := c.connect(ctx, queue)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer ch.Close()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		queue,
		c.tag,
		false, // autoAck: acknowledgment is always explicit
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	c.logger.Printf("consuming from %s", queue)

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			// In-progress handlers finish; their unacked messages would be
			// redelivered anyway if the process died here.
			c.logger.Printf("stopping consumer for %s", queue)
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("deliveries channel for %s closed", queue)
			}
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				c.handleDelivery(ctx, queue, ch, d, handler)
			}()
		}
	}
}

func (c *Consumer) connect(ctx context.Context, queue string) (*amqp.Connection, *amqp.Channel, error) {
	var lastErr error

	for attempt := 1; attempt <= c.connectAttempts; attempt++ {
		conn, ch, err := c.dialAndDeclare(queue)
		if err == nil {
			c.logger.Printf("connected, queue declared: %s", queue)
			return conn, ch, nil
		}

		lastErr = err
		c.logger.Printf("consumer connect attempt %d/%d failed: %v", attempt, c.connectAttempts, err)

		if attempt == c.connectAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(c.connectDelay):
		}
	}

	return nil, nil, fmt.Errorf("consumer startup for %s after %d attempts: %w", queue, c.connectAttempts, lastErr)
}

func (c *Consumer) dialAndDeclare(queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareQueue(ch, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}
	if err := declareQueue(ch, queue+DeadLetterSuffix); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}

	return conn, ch, nil
}

// handleDelivery applies the acknowledgment policy for one message:
// handler success acks, poison acks and drops with a warning, other errors
// requeue after a backoff until the per-message cap moves the message to the
// dead-letter queue.
func (c *Consumer) handleDelivery(ctx context.Context, queue string, ch Channel, d amqp.Delivery, handler HandlerFunc) {
	err := handler(ctx, d.Body)
	if err == nil {
		c.clearFailures(d.MessageId)
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Printf("ack on %s failed: %v", queue, ackErr)
		}
		return
	}

	if IsPoison(err) {
		// Redelivery cannot fix a bad payload; dropping with an ack avoids a
		// tight poison loop.
		c.logger.Printf("warning: dropping poison message on %s: %v", queue, err)
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Printf("ack on %s failed: %v", queue, ackErr)
		}
		return
	}

	attempts := c.noteFailure(d.MessageId)

	if c.maxDeliveries > 0 && d.MessageId != "" && attempts >= c.maxDeliveries {
		c.logger.Printf("message %s on %s failed %d times, dead-lettering: %v", d.MessageId, queue, attempts, err)
		if dlErr := c.deadLetter(ctx, queue, ch, d, err); dlErr != nil {
			// Keep the original in the queue rather than lose it.
			c.logger.Printf("dead-letter publish for %s failed, requeueing original: %v", d.MessageId, dlErr)
			if nackErr := d.Nack(false, true); nackErr != nil {
				c.logger.Printf("nack on %s failed: %v", queue, nackErr)
			}
			return
		}
		c.clearFailures(d.MessageId)
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Printf("ack on %s failed: %v", queue, ackErr)
		}
		return
	}

	c.logger.Printf("handler error on %s (attempt %d), requeueing: %v", queue, attempts, err)

	select {
	case <-ctx.Done():
	case <-time.After(c.backoff(attempts)):
	}

	if nackErr := d.Nack(false, true); nackErr != nil {
		c.logger.Printf("nack on %s failed: %v", queue, nackErr)
	}
}

func (c *Consumer) deadLetter(ctx context.Context, queue string, ch Channel, d amqp.Delivery, cause error) error {
	headers := amqp.Table{
		"x-origin-queue": queue,
		"x-error":        cause.Error(),
		"x-failed-at":    time.Now().UTC().Format(time.RFC3339),
	}

	return ch.PublishWithContext(
		ctx,
		"",
		queue+DeadLetterSuffix,
		false,
		false,
		amqp.Publishing{
			ContentType:  d.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    d.MessageId,
			Headers:      headers,
			Body:         d.Body,
		},
	)
}

func (c *Consumer) backoff(attempt int) time.Duration {
	backoff := c.backoffBase
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

func (c *Consumer) noteFailure(messageID string) int {
	if messageID == "" {
		return 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[messageID]++
	return c.failures[messageID]
}

func (c *Consumer) clearFailures(messageID string) {
	if messageID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failures, messageID)
}
