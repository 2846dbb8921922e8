package hostrpc

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/mock"
)

// MockRequester is a mock implementation of Requester using testify/mock.
type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	args := m.Called(ctx, subj, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nats.Msg), args.Error(1)
}

// Reply builds a reply message as the browser side would send it.
func Reply(data string) *nats.Msg {
	return &nats.Msg{Data: []byte(data)}
}
