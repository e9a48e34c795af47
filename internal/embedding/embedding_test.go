package embedding_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"talentsync/apps/worker/internal/embedding"
)

// scriptedEmbedder returns errs in order, then succeeds.
type scriptedEmbedder struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

var fastPolicy = embedding.RetryPolicy{MaxRetries: 3, MinWait: time.Millisecond, MaxWait: 5 * time.Millisecond}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"429", &embedding.StatusError{Provider: "cohere", StatusCode: 429}, true},
		{"503", &embedding.StatusError{Provider: "cohere", StatusCode: 503}, true},
		{"400", &embedding.StatusError{Provider: "cohere", StatusCode: 400}, false},
		{"401 Wrapped", fmt.Errorf("embed: %w", &embedding.StatusError{StatusCode: 401}), false},
		{"Deadline", context.DeadlineExceeded, true},
		{"Canceled", context.Canceled, false},
		{"Net Error", timeoutErr{}, true},
		{"Google 500", &googleapi.Error{Code: 500}, true},
		{"Google 403", &googleapi.Error{Code: 403}, false},
		{"GRPC Unavailable", status.Error(codes.Unavailable, "down"), true},
		{"GRPC InvalidArgument", status.Error(codes.InvalidArgument, "bad"), false},
		{"Plain", errors.New("decode failure"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, embedding.IsTransient(tt.err))
		})
	}
}

func TestRetrying_RecoversFromTransient(t *testing.T) {
	base := &scriptedEmbedder{errs: []error{
		&embedding.StatusError{StatusCode: 429},
		&embedding.StatusError{StatusCode: 502},
	}}
	r := embedding.NewRetrying(base, fastPolicy)

	vecs, err := r.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 3, base.calls)
}

func TestRetrying_StopsOnPermanent(t *testing.T) {
	base := &scriptedEmbedder{errs: []error{&embedding.StatusError{StatusCode: 400}}}
	r := embedding.NewRetrying(base, fastPolicy)

	_, err := r.EmbedBatch(context.Background(), []string{"a"})
	var se *embedding.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.StatusCode)
	assert.Equal(t, 1, base.calls)
}

func TestRetrying_BoundedAttempts(t *testing.T) {
	transient := &embedding.StatusError{StatusCode: 503}
	base := &scriptedEmbedder{errs: []error{transient, transient, transient, transient, transient}}
	r := embedding.NewRetrying(base, fastPolicy)

	_, err := r.EmbedBatch(context.Background(), []string{"a"})
	assert.Error(t, err)
	assert.Equal(t, 4, base.calls)
}

func TestRetrying_RespectsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	base := &scriptedEmbedder{errs: []error{&embedding.StatusError{StatusCode: 503}}}
	r := embedding.NewRetrying(base, embedding.RetryPolicy{MaxRetries: 3, MinWait: time.Hour, MaxWait: time.Hour})

	_, err := r.EmbedBatch(ctx, []string{"a"})
	assert.Error(t, err)
	assert.LessOrEqual(t, base.calls, 1)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = &embedding.StatusError{Provider: "cohere", StatusCode: 503}
	}
	base := &scriptedEmbedder{errs: errs}
	b := embedding.NewBreaker("test", base, time.Minute)

	for i := 0; i < 5; i++ {
		_, err := b.EmbedBatch(context.Background(), []string{"a"})
		var se *embedding.StatusError
		assert.ErrorAs(t, err, &se)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.EmbedBatch(context.Background(), []string{"a"})
	assert.True(t, embedding.IsOpen(err))
	assert.Equal(t, 5, base.calls)
}

func TestBreaker_IgnoresPermanentErrors(t *testing.T) {
	errs := make([]error, 8)
	for i := range errs {
		errs[i] = &embedding.StatusError{Provider: "cohere", StatusCode: 400, Body: "bad request"}
	}
	base := &scriptedEmbedder{errs: errs}
	b := embedding.NewBreaker("test", base, time.Minute)

	for i := 0; i < 8; i++ {
		_, err := b.EmbedBatch(context.Background(), []string{"a"})
		assert.False(t, embedding.IsOpen(err))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())

	vecs, err := b.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 9, base.calls)
}

func TestBreaker_PassesThrough(t *testing.T) {
	b := embedding.NewBreaker("test", &scriptedEmbedder{}, time.Minute)
	vecs, err := b.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
}

func TestRateLimited_WaitsForToken(t *testing.T) {
	base := &scriptedEmbedder{}
	r := embedding.NewRateLimited(base, 20)

	start := time.Now()
	for i := 0; i < 22; i++ {
		_, err := r.EmbedBatch(context.Background(), []string{"a"})
		require.NoError(t, err)
	}
	// burst of 20, then two more tokens at 50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRateLimited_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	base := &scriptedEmbedder{}
	r := embedding.NewRateLimited(base, 0.001)
	_, _ = r.EmbedBatch(context.Background(), []string{"a"})

	_, err := r.EmbedBatch(ctx, []string{"a"})
	assert.Error(t, err)
	assert.Equal(t, 1, base.calls)
}

func TestWrap(t *testing.T) {
	base := &scriptedEmbedder{errs: []error{&embedding.StatusError{StatusCode: 500}}}
	e := embedding.Wrap(base, embedding.Options{Name: "cohere", Retry: fastPolicy, RatePerSec: 100})

	vecs, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 2, base.calls)
}
