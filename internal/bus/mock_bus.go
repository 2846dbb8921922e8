package bus

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBus is a mock implementation of Bus using testify/mock.
type MockBus struct {
	mock.Mock
}

func (m *MockBus) Serve(ctx context.Context, h Handler) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *MockBus) Publish(ctx context.Context, data []byte) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockBus) Close() error {
	args := m.Called()
	return args.Error(0)
}
