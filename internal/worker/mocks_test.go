package worker_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"talentsync/apps/worker/internal/candidate"
	"talentsync/apps/worker/internal/vector"
	"talentsync/apps/worker/internal/worker"
)

// Mocks

type MockStore struct{ mock.Mock }

func (m *MockStore) ListStale(ctx context.Context) ([]candidate.Candidate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]candidate.Candidate), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, id int64) (*candidate.Candidate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*candidate.Candidate), args.Error(1)
}

func (m *MockStore) MarkIndexed(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockStore) ResetAllIndexed(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockIndex struct{ mock.Mock }

func (m *MockIndex) EnsureCollection(ctx context.Context, dimension int, distance vector.Distance) error {
	args := m.Called(ctx, dimension, distance)
	return args.Error(0)
}

func (m *MockIndex) Upsert(ctx context.Context, points []worker.Point) error {
	args := m.Called(ctx, points)
	return args.Error(0)
}

func (m *MockIndex) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockIndex) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIndex) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockHistory struct{ mock.Mock }

func (m *MockHistory) Record(ctx context.Context, exec worker.Execution) error {
	args := m.Called(ctx, exec)
	return args.Error(0)
}

// Fakes

// memStore is an in-memory candidate table with the same staleness rule as the SQL.
type memStore struct {
	mu   sync.Mutex
	rows map[int64]*candidate.Candidate
	now  func() time.Time
}

func newMemStore(cands ...candidate.Candidate) *memStore {
	s := &memStore{rows: map[int64]*candidate.Candidate{}, now: time.Now}
	for i := range cands {
		c := cands[i]
		s.rows[c.ID] = &c
	}
	return s
}

func (s *memStore) ListStale(ctx context.Context) ([]candidate.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []candidate.Candidate
	for _, c := range s.rows {
		if c.IsStale() {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Get(ctx context.Context, id int64) (*candidate.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) MarkIndexed(ctx context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, id := range ids {
		if c, ok := s.rows[id]; ok {
			t := now
			c.IndexedAt = &t
		}
	}
	return nil
}

func (s *memStore) ResetAllIndexed(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.rows {
		c.IndexedAt = nil
	}
	return int64(len(s.rows)), nil
}

type memIndex struct {
	mu      sync.Mutex
	exists  bool
	points  map[int64]worker.Point
	upserts int
}

func newMemIndex() *memIndex {
	return &memIndex{points: map[int64]worker.Point{}}
}

func (x *memIndex) EnsureCollection(ctx context.Context, dimension int, distance vector.Distance) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.exists = true
	return nil
}

func (x *memIndex) Upsert(ctx context.Context, points []worker.Point) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.upserts++
	for _, p := range points {
		x.points[p.ID] = p
	}
	return nil
}

func (x *memIndex) Delete(ctx context.Context, id int64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.points, id)
	return nil
}

func (x *memIndex) Clear(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.exists {
		x.points = map[int64]worker.Point{}
	}
	return nil
}

func (x *memIndex) Count(ctx context.Context) (int64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return int64(len(x.points)), nil
}

func (x *memIndex) ids() []int64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	var out []int64
	for id := range x.points {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// fixedEmbedder returns a vector of the given size per text, derived from its position.
type fixedEmbedder struct {
	dim   int
	calls int
}

func (e *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, e.dim)
		v[0] = float32(i)
		out[i] = v
	}
	return out, nil
}

type sliceSource struct {
	mu       sync.Mutex
	payloads [][]byte
	errs     []error
	cancel   context.CancelFunc
}

func (s *sliceSource) Pop(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	if len(s.payloads) == 0 {
		s.cancel()
		return nil, nil
	}
	p := s.payloads[0]
	s.payloads = s.payloads[1:]
	return p, nil
}

func newConsumer(src worker.JobSource, d *worker.Dispatcher, backoff time.Duration) *worker.Consumer {
	return worker.NewConsumer(src, d, backoff)
}
