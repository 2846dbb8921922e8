// Package bus carries UI messages to the hub and results back. Every
// inbound message is handled on its own goroutine; there is no ordering or
// mutual exclusion between handlers.
package bus

import (
	"context"
	"log/slog"
	"runtime/debug"
)

// Handler processes one inbound message and returns the reply to relay, if
// any.
type Handler func(ctx context.Context, data []byte) ([]byte, bool)

// Bus is a bidirectional message channel between UIs and the hub.
type Bus interface {
	// Serve delivers inbound messages to h until ctx is cancelled.
	Serve(ctx context.Context, h Handler) error
	// Publish broadcasts data to every connected UI.
	Publish(ctx context.Context, data []byte) error
	Close() error
}

// handleSafely runs h and turns a panic into a dropped message, so one bad
// message cannot stop the hub.
func handleSafely(ctx context.Context, log *slog.Logger, h Handler, data []byte) (reply []byte, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("handler panicked; dropping message", "panic", rec, "stack", string(debug.Stack()))
			reply, ok = nil, false
		}
	}()
	return h(ctx, data)
}
