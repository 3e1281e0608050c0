package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/emolearn/emolearn/backend/internal/service/assistant"
)

// publisher is the subset of *redis.Client the Publisher needs.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher mirrors orchestrator events onto a Redis pub/sub channel so
// collaborators such as the mood graph and badge service can follow them.
type Publisher struct {
	rdb     publisher
	channel string
}

// NewPublisher returns a publisher writing to channel.
func NewPublisher(rdb publisher, channel string) *Publisher {
	return &Publisher{rdb: rdb, channel: channel}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Publish implements assistant.Sink.
func (p *Publisher) Publish(ctx context.Context, event assistant.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, string(payload)).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}
