package delivery

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/donora/internal/config"
)

// RedisPublisher appends messages to a redis stream.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) (*RedisPublisher, error) {
	if client == nil {
		return nil, errors.New("redis delivery driver requires REDIS_ADDR")
	}
	return &RedisPublisher{client: client, stream: stream}, nil
}

func (p *RedisPublisher) Driver() string { return config.DeliveryDriverRedis }

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"id":          msg.ID,
			"send_job_id": msg.SendJobID,
			"channel":     msg.Channel,
			"payload":     string(body),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd %s: %w", p.stream, err)
	}
	return nil
}
