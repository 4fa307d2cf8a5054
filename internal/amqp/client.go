package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"ecotrack/internal/core"
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// Client publishes domain events to a direct exchange and consumes them from
// a durable queue bound to every routing key. Publishing goes through a
// circuit breaker so a broker outage never blocks request handling.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	breaker *gobreaker.CircuitBreaker
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		breaker:      newBreaker("amqp-publish", maxFailures, openTimeout),
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	if err := c.setup(channel); err != nil {
		c.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) setup(channel *amqp091.Channel) error {
	err := channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range []string{RoutingActivityLogged, RoutingChallengeCompleted} {
		if err := channel.QueueBind(c.queueName, key, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", key, err)
		}
	}

	return nil
}

// PublishActivityLogged implements ports.EventPublisher.
func (c *Client) PublishActivityLogged(ctx context.Context, userID string, rec core.ActivityRecord) error {
	body, err := NewActivityLoggedMessage(userID, rec).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, RoutingActivityLogged, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published activity logged message",
		"user_id", userID,
		"activity_id", rec.ID,
		"exchange", c.exchangeName)
	return nil
}

// PublishChallengeCompleted implements ports.EventPublisher.
func (c *Client) PublishChallengeCompleted(ctx context.Context, userID string, ch core.Challenge) error {
	body, err := NewChallengeCompletedMessage(userID, ch).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, RoutingChallengeCompleted, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published challenge completed message",
		"user_id", userID,
		"challenge_id", ch.ID,
		"points", ch.Points)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.send(ctx, routingKey, body)
	})
	if isBreakerRejection(err) {
		return fmt.Errorf("publish %s: %w: %w", routingKey, ErrCircuitOpen, err)
	}
	return err
}

func (c *Client) send(ctx context.Context, routingKey string, body []byte) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.dropConnection()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// ensureChannel returns the live channel, reconnecting once if it was lost.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch != nil && !ch.IsClosed() {
		return ch, nil
	}

	c.dropConnection()
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("reconnect: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel, nil
}

func (c *Client) dropConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// BreakerState reports the publish circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Handlers receive decoded messages by routing key. A nil handler acks and
// drops messages of its kind.
type Handlers struct {
	ActivityLogged     func(context.Context, *ActivityLoggedMessage) error
	ChallengeCompleted func(context.Context, *ChallengeCompletedMessage) error
}

// ConsumeMessages consumes until ctx is done or the delivery channel closes.
// Undecodable messages are rejected; handler failures are requeued.
func (c *Client) ConsumeMessages(ctx context.Context, h Handlers) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}

	msgs, err := channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.dispatch(ctx, delivery, h)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, delivery amqp091.Delivery, h Handlers) {
	err := handleDelivery(ctx, delivery.RoutingKey, delivery.Body, h)
	switch {
	case err == nil:
		delivery.Ack(false)
	case errors.Is(err, errUndecodable):
		slog.ErrorContext(ctx, "Failed to decode message", "routing_key", delivery.RoutingKey, "error", err)
		delivery.Nack(false, false) // reject and don't requeue
	default:
		slog.ErrorContext(ctx, "Failed to handle message", "routing_key", delivery.RoutingKey, "error", err)
		delivery.Nack(false, true) // reject and requeue
	}
}

var errUndecodable = errors.New("undecodable message")

func handleDelivery(ctx context.Context, routingKey string, body []byte, h Handlers) error {
	switch routingKey {
	case RoutingActivityLogged:
		msg, err := ActivityLoggedMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", errUndecodable, err)
		}
		if h.ActivityLogged == nil {
			return nil
		}
		return h.ActivityLogged(ctx, msg)
	case RoutingChallengeCompleted:
		msg, err := ChallengeCompletedMessageFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: %v", errUndecodable, err)
		}
		if h.ChallengeCompleted == nil {
			return nil
		}
		return h.ChallengeCompleted(ctx, msg)
	default:
		return fmt.Errorf("%w: unknown routing key %q", errUndecodable, routingKey)
	}
}

// Run consumes with reconnects, backing off exponentially after connection
// failures. It returns when ctx is done or on a non-connection error.
func (c *Client) Run(ctx context.Context, h Handlers) error {
	reconnect := newReconnectBackoff()
	for {
		err := c.ConsumeMessages(ctx, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !isConnectionError(err) && !strings.Contains(err.Error(), "channel closed") {
			return err
		}
		c.dropConnection()
		wait := reconnect.NextBackOff()
		slog.WarnContext(ctx, "AMQP consumer disconnected, retrying", "error", err, "backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
