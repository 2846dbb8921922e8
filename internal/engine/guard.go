package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"extension-hub/internal/kv"
	"extension-hub/internal/settings"
)

// ErrEngineUnavailable is returned when the engine could not be created.
var ErrEngineUnavailable = errors.New("engine: unavailable")

// State is the guard's lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uninitialized"
}

// Guard creates the engine lazily, at most once per browser session. The
// "created" flag lives in the session store and is written only after the
// host confirms creation, so a failed attempt is retried on the next call.
//
// Check-then-create is not atomic: two concurrent first calls may both reach
// the host. The host's one-engine-per-extension rule decides the outcome.
type Guard struct {
	local   kv.Store
	session kv.Store
	host    Host
	log     *slog.Logger
}

// NewGuard wires the guard to the persistent store (metadata), the session
// store (created flag) and the engine host.
func NewGuard(local, session kv.Store, host Host, log *slog.Logger) *Guard {
	return &Guard{local: local, session: session, host: host, log: log}
}

// State reports whether the engine was created in this session.
func (g *Guard) State(ctx context.Context) (State, error) {
	var created bool
	found, err := kv.GetJSON(ctx, g.session, settings.KeyEngineCreated, &created)
	if err != nil {
		return StateUninitialized, err
	}
	if found && created {
		return StateReady, nil
	}
	return StateUninitialized, nil
}

// Metadata returns the stored engine metadata with defaults applied. A
// storage failure is logged and answered with the defaults.
func (g *Guard) Metadata(ctx context.Context) Metadata {
	var meta Metadata
	if _, err := kv.GetJSON(ctx, g.local, settings.KeyEngineMetadata, &meta); err != nil {
		g.log.Warn("failed to read engine metadata; using defaults", "err", err)
		meta = Metadata{}
	}
	return meta.WithDefaults()
}

// EnsureReady creates the engine unless this session already has one.
func (g *Guard) EnsureReady(ctx context.Context) error {
	state, err := g.State(ctx)
	if err != nil {
		return fmt.Errorf("%w: read session flag: %v", ErrEngineUnavailable, err)
	}
	if state == StateReady {
		return nil
	}

	meta := g.Metadata(ctx)
	g.log.Info("creating engine", "task", meta.TaskName, "hub", meta.ModelHub, "model", meta.ModelID)
	if err := g.host.CreateEngine(ctx, meta); err != nil {
		g.log.Warn("engine creation failed", "model", meta.ModelID, "err", err)
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	if err := kv.SetJSON(ctx, g.session, settings.KeyEngineCreated, true); err != nil {
		// The engine exists; the next call will try to create it again and
		// the host will reject the duplicate.
		g.log.Warn("failed to persist engine flag", "err", err)
	}
	return nil
}
