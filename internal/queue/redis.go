package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPollTimeout bounds each BLPOP so shutdown is noticed between polls.
const DefaultPollTimeout = 5 * time.Second

func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisQueue is a FIFO list: producers RPUSH, the worker BLPOPs.
type RedisQueue struct {
	client      redis.Cmdable
	key         string
	pollTimeout time.Duration
}

func NewRedisQueue(client redis.Cmdable, key string, pollTimeout time.Duration) *RedisQueue {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &RedisQueue{client: client, key: key, pollTimeout: pollTimeout}
}

// Pop blocks for up to the poll timeout and returns nil, nil when nothing arrived.
func (q *RedisQueue) Pop(ctx context.Context) ([]byte, error) {
	res, err := q.client.BLPop(ctx, q.pollTimeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BLPOP replies with [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply of length %d", len(res))
	}
	return []byte(res[1]), nil
}

func (q *RedisQueue) Push(ctx context.Context, payload []byte) error {
	return q.client.RPush(ctx, q.key, payload).Err()
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
