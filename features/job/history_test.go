package job_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentsync/apps/worker/features/job"
	"talentsync/apps/worker/internal/worker"
)

func newHistory(t *testing.T, limit int) (*job.RedisHistory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return job.NewRedisHistory(client, limit), mr
}

func TestRedisHistory_RecordAndList(t *testing.T) {
	h, _ := newHistory(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		exec := worker.Execution{
			JobType:       "etl_sync",
			Status:        worker.StatusSucceeded,
			Processed:     i,
			CorrelationID: fmt.Sprintf("c-%d", i),
			StartedAt:     time.Now().UTC(),
		}
		require.NoError(t, h.Record(ctx, exec))
	}

	execs, err := h.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, execs, 3, "history is capped")
	assert.Equal(t, "c-4", execs[0].CorrelationID, "newest first")
	assert.Equal(t, "c-2", execs[2].CorrelationID)

	execs, err = h.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, execs, 1)

	last, err := h.Last(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 4, last.Processed)
}

func TestRedisHistory_LastEmpty(t *testing.T) {
	h, _ := newHistory(t, 10)

	last, err := h.Last(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, last)
}

func TestRedisHistory_CorruptEntry(t *testing.T) {
	h, mr := newHistory(t, 10)
	_, err := mr.Lpush(job.HistoryKey, "not json")
	require.NoError(t, err)

	_, err = h.List(context.Background(), 10)
	assert.Error(t, err)
}
