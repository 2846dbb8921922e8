package engine

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
)

// MockHost is a mock implementation of Host using testify/mock.
type MockHost struct {
	mock.Mock
}

func (m *MockHost) CreateEngine(ctx context.Context, meta Metadata) error {
	args := m.Called(ctx, meta)
	return args.Error(0)
}

func (m *MockHost) RunEngine(ctx context.Context, req RunRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}
