package app_test

import (
	"context"
	"errors"
	"sync"

	"talentsync/apps/worker/internal/vector"
	"talentsync/apps/worker/internal/worker"
)

type fakeIndex struct {
	mu        sync.Mutex
	ensures   int
	failUntil int
	points    map[int64]worker.Point
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{points: map[int64]worker.Point{}}
}

func (f *fakeIndex) EnsureCollection(ctx context.Context, dimension int, distance vector.Distance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensures++
	if f.ensures <= f.failUntil {
		return errors.New("index not ready")
	}
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, points []worker.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range points {
		f.points[p.ID] = p
	}
	return nil
}

func (f *fakeIndex) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.points, id)
	return nil
}

func (f *fakeIndex) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = map[int64]worker.Point{}
	return nil
}

func (f *fakeIndex) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.points)), nil
}

type fakePinger struct {
	calls     int
	failUntil int
}

func (p *fakePinger) PingContext(ctx context.Context) error {
	p.calls++
	if p.calls <= p.failUntil {
		return errors.New("connection refused")
	}
	return nil
}
