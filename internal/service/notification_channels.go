package service

import (
	"account_onboarding/pkg/crypto"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

const (
	ChannelLog   = "log"
	ChannelAMQP  = "amqp"
	ChannelRedis = "redis"

	signatureHeader = "x-signature"
	eventIDHeader   = "x-event-id"
)

// LogChannel writes the notification to the service log. It stands in for an
// SMS gateway and is always available.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return ChannelLog }

func (c *LogChannel) Send(ctx context.Context, msg NotificationMessage) error {
	c.logger.InfoContext(ctx, "Notification sent",
		slog.String("notification_id", msg.ID),
		slog.String("recipient", msg.RecipientName),
		slog.String("phone", msg.RecipientPhone),
		slog.String("status", string(msg.Status)),
		slog.String("message", msg.Message))
	return nil
}

type EventProducer interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte, headers map[string]any) error
	Close() error
}

// AMQPChannel publishes signed notification events to a topic exchange with
// routing key "<prefix>.<status>", lower-cased.
type AMQPChannel struct {
	producer      EventProducer
	signer        *crypto.Signer
	exchange      string
	routingPrefix string
}

func NewAMQPChannel(producer EventProducer, signer *crypto.Signer, exchange, routingPrefix string) *AMQPChannel {
	return &AMQPChannel{
		producer:      producer,
		signer:        signer,
		exchange:      exchange,
		routingPrefix: routingPrefix,
	}
}

func (c *AMQPChannel) Name() string { return ChannelAMQP }

func (c *AMQPChannel) Send(ctx context.Context, msg NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	headers := map[string]any{eventIDHeader: msg.ID}
	if c.signer != nil {
		headers[signatureHeader] = c.signer.SignEvent(msg.ID, body)
	}

	return c.producer.Publish(ctx, c.exchange, c.RoutingKey(msg), body, headers)
}

func (c *AMQPChannel) RoutingKey(msg NotificationMessage) string {
	return c.routingPrefix + "." + strings.ToLower(string(msg.Status))
}

func (c *AMQPChannel) Close() error {
	return c.producer.Close()
}

type StreamPublisher interface {
	Publish(ctx context.Context, stream string, event []byte, signature string) (string, error)
	Close() error
}

// RedisStreamChannel appends signed notification events to a Redis stream.
type RedisStreamChannel struct {
	publisher StreamPublisher
	signer    *crypto.Signer
	stream    string
}

func NewRedisStreamChannel(publisher StreamPublisher, signer *crypto.Signer, stream string) *RedisStreamChannel {
	return &RedisStreamChannel{
		publisher: publisher,
		signer:    signer,
		stream:    stream,
	}
}

func (c *RedisStreamChannel) Name() string { return ChannelRedis }

func (c *RedisStreamChannel) Send(ctx context.Context, msg NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	var signature string
	if c.signer != nil {
		signature = c.signer.SignEvent(msg.ID, body)
	}

	_, err = c.publisher.Publish(ctx, c.stream, body, signature)
	return err
}

func (c *RedisStreamChannel) Close() error {
	return c.publisher.Close()
}
