package queue

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Task types carried on the demo maintenance stream.
const (
	TaskDemoReset   = "demo_reset"
	TaskDemoCleanup = "demo_cleanup"
	TaskDemoUsage   = "demo_usage"
)

// Publisher appends maintenance tasks to the stream the worker consumes.
type Publisher struct {
	client *redis.Client
	stream string
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

func (p *Publisher) Enqueue(ctx context.Context, taskType string, values map[string]any) error {
	payload := map[string]any{"type": taskType}
	for k, v := range values {
		payload[k] = v
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: payload,
	}).Err()
}
