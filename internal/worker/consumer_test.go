package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumer_Run_ProcessesInOrderAndSurvivesFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idx := newMemIndex()
	d := newDispatcher(newMemStore(ana(), bo()), idx, nil)

	src := &sliceSource{
		cancel: cancel,
		payloads: [][]byte{
			[]byte(`not json`),
			[]byte(`{"job_type":"single_index","candidate_id":7}`),
			[]byte(`{"job_type":"bogus_type"}`),
			[]byte(`{"job_type":"single_index","candidate_id":9}`),
			[]byte(`{"job_type":"delete_point","candidate_id":7}`),
		},
	}

	c := newConsumer(src, d, 10*time.Millisecond)
	require.NoError(t, c.Run(ctx))

	assert.Equal(t, []int64{9}, idx.ids())
}

func TestConsumer_Run_BacksOffOnPopError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idx := newMemIndex()
	d := newDispatcher(newMemStore(ana()), idx, nil)

	src := &sliceSource{
		cancel:   cancel,
		errs:     []error{errors.New("connection reset"), errors.New("connection reset")},
		payloads: [][]byte{[]byte(`{"job_type":"etl_sync"}`)},
	}

	start := time.Now()
	c := newConsumer(src, d, 20*time.Millisecond)
	require.NoError(t, c.Run(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, []int64{7}, idx.ids())
}

func TestConsumer_Run_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newConsumer(&sliceSource{cancel: cancel}, newDispatcher(newMemStore(), newMemIndex(), nil), 0)
	assert.NoError(t, c.Run(ctx))
}
