package job_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"talentsync/apps/worker/internal/worker"
)

type MockPusher struct{ mock.Mock }

func (m *MockPusher) Push(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type MockHistory struct{ mock.Mock }

func (m *MockHistory) List(ctx context.Context, limit int) ([]worker.Execution, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]worker.Execution), args.Error(1)
}

func (m *MockHistory) Last(ctx context.Context) (*worker.Execution, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*worker.Execution), args.Error(1)
}
