package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAdapter is a mock implementation of Adapter using testify/mock.
type MockAdapter struct {
	mock.Mock
	name string
}

// NewMockAdapter returns a mock registered under name.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{name: name}
}

func (m *MockAdapter) Name() string { return m.name }

func (m *MockAdapter) Invoke(ctx context.Context, prompt string) Result {
	args := m.Called(ctx, prompt)
	return args.Get(0).(Result)
}
