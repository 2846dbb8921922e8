package browser

import (
	"context"

	"github.com/stretchr/testify/mock"

	"extension-hub/internal/prompt"
)

// MockHost is a mock implementation of Host using testify/mock.
type MockHost struct {
	mock.Mock
}

func (m *MockHost) OpenTab(ctx context.Context, url string) (Tab, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(Tab), args.Error(1)
}

func (m *MockHost) QueryTabs(ctx context.Context, currentWindow bool) ([]Tab, error) {
	args := m.Called(ctx, currentWindow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Tab), args.Error(1)
}

func (m *MockHost) GroupTabs(ctx context.Context, tabIDs []int) (int, error) {
	args := m.Called(ctx, tabIDs)
	return args.Int(0), args.Error(1)
}

func (m *MockHost) UpdateGroup(ctx context.Context, groupID int, title, color string) error {
	args := m.Called(ctx, groupID, title, color)
	return args.Error(0)
}

func (m *MockHost) SearchHistory(ctx context.Context, q HistoryQuery) ([]prompt.HistoryItem, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]prompt.HistoryItem), args.Error(1)
}
