// Package bus is the RabbitMQ transport to the procurement platform.
// Topics map to durable queues on the default exchange.
package bus

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one inbound delivery. It must not panic the
// consumer loop; panics are recovered and logged.
type Handler func(body []byte)

// Client holds one connection and one channel; the service publishes
// and consumes little enough that a single channel is sufficient.
type Client struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *zap.Logger
}

func Connect(url string, logger *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("bus connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bus channel: %w", err)
	}

	logger.Info("connected to bus")

	return &Client{conn: conn, ch: ch, logger: logger}, nil
}

func (c *Client) declare(queue string) error {
	_, err := c.ch.QueueDeclare(queue, true, false, false, false, nil)

	return err
}

// Publish delivers a JSON message to the queue. A nil return means the
// broker accepted the publish; callers mark their outbox rows sent only
// on success.
func (c *Client) Publish(ctx context.Context, queue string, body []byte) error {
	if err := c.declare(queue); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	err := c.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	return nil
}

// Subscribe consumes the queue one delivery at a time, acking after the
// handler returns. Handler panics are logged, never propagated: a bad
// message must not take the consumer loop down.
func (c *Client) Subscribe(ctx context.Context, queue string, handler Handler) error {
	if err := c.declare(queue); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	deliveries, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Error("bus consumer channel closed", zap.String("queue", queue))
					return
				}
				c.handle(d, handler)
			}
		}
	}()

	c.logger.Info("bus consumer started", zap.String("queue", queue))

	return nil
}

func (c *Client) handle(d amqp.Delivery, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("bus handler panicked", zap.Any("panic", r))
		}
	}()

	handler(d.Body)
	_ = d.Ack(false)
}

func (c *Client) Close() error {
	if err := c.ch.Close(); err != nil {
		_ = c.conn.Close()
		return err
	}

	return c.conn.Close()
}
