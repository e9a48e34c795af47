package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"talentsync/apps/worker/internal/worker"
)

const (
	HistoryKey = "etl_executions"
	LastJobKey = "etl:last:job"
)

// RedisHistory keeps the most recent executions in a capped Redis list.
type RedisHistory struct {
	client redis.Cmdable
	limit  int
}

func NewRedisHistory(client redis.Cmdable, limit int) *RedisHistory {
	if limit <= 0 {
		limit = 50
	}
	return &RedisHistory{client: client, limit: limit}
}

func (h *RedisHistory) Record(ctx context.Context, exec worker.Execution) error {
	body, err := json.Marshal(exec)
	if err != nil {
		return err
	}

	_, err = h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, HistoryKey, body)
		pipe.LTrim(ctx, HistoryKey, 0, int64(h.limit-1))
		pipe.Set(ctx, LastJobKey, body, 0)
		return nil
	})
	return err
}

// List returns up to limit executions, newest first.
func (h *RedisHistory) List(ctx context.Context, limit int) ([]worker.Execution, error) {
	if limit <= 0 || limit > h.limit {
		limit = h.limit
	}

	raw, err := h.client.LRange(ctx, HistoryKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	execs := make([]worker.Execution, 0, len(raw))
	for _, r := range raw {
		var e worker.Execution
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("decode execution: %w", err)
		}
		execs = append(execs, e)
	}
	return execs, nil
}

// Last returns nil, nil before any job has run.
func (h *RedisHistory) Last(ctx context.Context) (*worker.Execution, error) {
	raw, err := h.client.Get(ctx, LastJobKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var e worker.Execution
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode execution: %w", err)
	}
	return &e, nil
}
