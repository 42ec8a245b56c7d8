package redisstream

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// streamClient is satisfied by *redis.Client and *redis.ClusterClient.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

type Publisher struct {
	client streamClient
	maxLen int64
}

// NewPublisher appends to streams through client. A positive maxLen caps each
// stream approximately at that many entries.
func NewPublisher(client streamClient, maxLen int64) *Publisher {
	return &Publisher{client: client, maxLen: maxLen}
}

// Publish appends one entry holding the encoded event and its signature and
// returns the entry id Redis assigned.
func (p *Publisher) Publish(ctx context.Context, stream string, event []byte, signature string) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event":     event,
			"signature": signature,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish event to stream %s: %w", stream, err)
	}

	return id, nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
