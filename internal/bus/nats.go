package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATS subjects used by the hub.
const (
	SubjectInbound  = "hub.inbound"
	SubjectOutbound = "hub.outbound"
	queueGroup      = "extension-hub"
)

// Conn is the subset of *nats.Conn the bus uses.
type Conn interface {
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subj string, data []byte) error
}

type natsBus struct {
	log *slog.Logger
	nc  Conn

	mu       sync.Mutex
	stopping bool
	wg       sync.WaitGroup
}

// NewNATS builds a bus over NATS. Hub replicas share inbound messages
// through a queue group. A message sent with a reply subject is answered
// directly; otherwise the reply is published on SubjectOutbound.
func NewNATS(log *slog.Logger, nc Conn) Bus {
	return &natsBus{log: log, nc: nc}
}

func (b *natsBus) Serve(ctx context.Context, h Handler) error {
	sub, err := b.nc.QueueSubscribe(SubjectInbound, queueGroup, func(msg *nats.Msg) {
		if !b.track() {
			return
		}
		go func() {
			defer b.wg.Done()
			b.handleMessage(ctx, msg, h)
		}()
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SubjectInbound, err)
	}
	<-ctx.Done()
	b.mu.Lock()
	b.stopping = true
	b.mu.Unlock()
	err = sub.Unsubscribe()
	b.wg.Wait()
	return err
}

// track registers one in-flight message. Messages delivered after Serve
// starts stopping are dropped.
func (b *natsBus) track() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopping {
		return false
	}
	b.wg.Add(1)
	return true
}

func (b *natsBus) handleMessage(ctx context.Context, msg *nats.Msg, h Handler) {
	reply, ok := handleSafely(ctx, b.log, h, msg.Data)
	if !ok {
		return
	}
	if msg.Reply != "" {
		if err := b.nc.Publish(msg.Reply, reply); err != nil {
			b.log.Error("failed to answer request", "subject", msg.Reply, "err", err)
		}
		return
	}
	if err := b.Publish(ctx, reply); err != nil {
		b.log.Error("failed to publish result", "err", err)
	}
}

func (b *natsBus) Publish(_ context.Context, data []byte) error {
	if err := b.nc.Publish(SubjectOutbound, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", SubjectOutbound, err)
	}
	return nil
}

// Close is a no-op; the connection belongs to the caller.
func (b *natsBus) Close() error {
	return nil
}
