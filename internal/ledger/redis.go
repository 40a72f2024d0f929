package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the stream key used when none is configured.
const DefaultStream = "poolpack:usage"

// RedisSink appends usage records to a Redis stream.
type RedisSink struct {
	client *redis.Client
	stream string
}

// NewRedisSink connects to url (redis://...) and verifies the connection.
func NewRedisSink(ctx context.Context, url, stream string) (*RedisSink, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisSinkWithClient(client, stream), nil
}

// NewRedisSinkWithClient uses an existing client.
func NewRedisSinkWithClient(client *redis.Client, stream string) *RedisSink {
	if strings.TrimSpace(stream) == "" {
		stream = DefaultStream
	}
	return &RedisSink{client: client, stream: stream}
}

// Record appends every usage entry in one pipeline.
func (s *RedisSink) Record(ctx context.Context, usage []Usage) error {
	if len(usage) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, u := range usage {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			Values: map[string]any{
				"resource_id":  u.ResourceID,
				"consumer_id":  u.ConsumerID,
				"batch_id":     u.BatchID,
				"delivered_at": u.DeliveredAt.UTC().Format(time.RFC3339Nano),
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append usage to %s: %w", s.stream, err)
	}
	return nil
}

// List returns up to limit most recent records, newest first.
func (s *RedisSink) List(ctx context.Context, limit int) ([]Usage, error) {
	if limit <= 0 {
		limit = 50
	}
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("read usage stream %s: %w", s.stream, err)
	}
	out := make([]Usage, 0, len(msgs))
	for _, msg := range msgs {
		u := Usage{
			ResourceID: fieldString(msg.Values, "resource_id"),
			ConsumerID: fieldString(msg.Values, "consumer_id"),
			BatchID:    fieldString(msg.Values, "batch_id"),
		}
		if ts, err := time.Parse(time.RFC3339Nano, fieldString(msg.Values, "delivered_at")); err == nil {
			u.DeliveredAt = ts
		}
		out = append(out, u)
	}
	return out, nil
}

// Ping checks connectivity.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

func fieldString(values map[string]any, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}
