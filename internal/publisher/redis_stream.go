package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fortuna/roster/internal/roster"
)

// DefaultStream is the stream roster events are appended to.
const DefaultStream = "roster.events"

// RedisStreamPublisher publishes roster events to a Redis stream
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamPublisher creates a publisher on an existing client. The
// stream is trimmed to roughly maxLen entries; zero disables trimming.
func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Name identifies the sink in logs and metrics.
func (p *RedisStreamPublisher) Name() string {
	return "redis"
}

// Publish appends the event to the stream
func (p *RedisStreamPublisher) Publish(ctx context.Context, event roster.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: []interface{}{
			"type", string(event.Type),
			"data", string(data),
			"timestamp", event.OccurredAt.Unix(),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publishing %s: %w", event.Type, err)
	}
	return nil
}

// Recent returns up to count of the newest events, newest first.
func (p *RedisStreamPublisher) Recent(ctx context.Context, count int64) ([]roster.Event, error) {
	msgs, err := p.client.XRevRangeN(ctx, p.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.stream, err)
	}

	events := make([]roster.Event, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var e roster.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decoding event %s: %w", msg.ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}
