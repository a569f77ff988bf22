package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"cvbuilder/internal/shared/telemetry"
)

// ErrConsumerClosed is returned when the broker closes the delivery channel.
var ErrConsumerClosed = errors.New("amqp delivery channel closed")

func dialQueue(url, queue string) (*amqp.Connection, *amqp.Channel, error) {
	if strings.TrimSpace(url) == "" {
		return nil, nil, fmt.Errorf("AMQP_URL is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return conn, ch, nil
}

type publishChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPClient publishes messages to a durable RabbitMQ queue.
type AMQPClient struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    publishChannel
	queue string
}

// NewAMQPClient dials url and declares queue.
func NewAMQPClient(url, queue string) (*AMQPClient, error) {
	conn, ch, err := dialQueue(url, queue)
	if err != nil {
		return nil, err
	}
	return &AMQPClient{conn: conn, ch: ch, queue: queue}, nil
}

// Send publishes msg as a persistent message on the default exchange.
func (c *AMQPClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode amqp message: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ch.Publish("", c.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	}); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (c *AMQPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.ch.Close()
	if c.conn != nil {
		if cerr := c.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var _ Client = (*AMQPClient)(nil)

type consumeChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPConsumer delivers queue messages to a handler with bounded concurrency.
type AMQPConsumer struct {
	conn        *amqp.Connection
	ch          consumeChannel
	queue       string
	concurrency int
}

// NewAMQPConsumer dials url and declares queue. The prefetch count equals
// concurrency so the broker never hands out more than can be processed.
func NewAMQPConsumer(url, queue string, concurrency int) (*AMQPConsumer, error) {
	conn, ch, err := dialQueue(url, queue)
	if err != nil {
		return nil, err
	}
	return &AMQPConsumer{conn: conn, ch: ch, queue: queue, concurrency: max(1, concurrency)}, nil
}

// Run consumes until ctx is canceled, then waits for in-flight handlers.
// Undecodable messages are acknowledged and dropped. A failed message is
// requeued once and dropped when it fails again.
func (c *AMQPConsumer) Run(ctx context.Context, handle HandlerFunc) error {
	if err := c.ch.Qos(c.concurrency, 0, false); err != nil {
		return fmt.Errorf("amqp qos: %w", err)
	}
	deliveries, err := c.ch.Consume(
		c.queue, // queue
		"",      // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrConsumerClosed
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return nil
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				c.handle(context.WithoutCancel(ctx), d, handle)
			}(d)
		}
	}
}

func (c *AMQPConsumer) handle(ctx context.Context, d amqp.Delivery, handle HandlerFunc) {
	msg, err := DecodeMessage(d.Body)
	if err != nil || strings.TrimSpace(msg.AnalysisID) == "" {
		fields := map[string]any{"queue": c.queue, "bodyLen": len(d.Body)}
		if err != nil {
			fields["error"] = err.Error()
		}
		telemetry.Error("queue.amqp.dropped", fields)
		_ = d.Ack(false)
		return
	}
	if err := handle(ctx, msg); err != nil {
		requeue := !d.Redelivered
		telemetry.Error("queue.amqp.failed", map[string]any{
			"queue":      c.queue,
			"analysisId": msg.AnalysisID,
			"requestId":  msg.RequestID,
			"requeue":    requeue,
			"error":      err.Error(),
		})
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

// Close releases the channel and connection.
func (c *AMQPConsumer) Close() error {
	err := c.ch.Close()
	if c.conn != nil {
		if cerr := c.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
