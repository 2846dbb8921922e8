package llm

import (
	"context"
	"errors"
	"log/slog"

	"extension-hub/internal/engine"
	"extension-hub/internal/prompt"
)

// Engine input limits and run options.
const (
	EnginePromptLimit  = 2000
	engineSystemPrompt = "/no_think Your role is to summarize the provided content as succinctly as possible while retaining the most important information /no_think"
	engineUnavailable  = "The on-device model is not available right now. Please try again."
)

var engineRunOptions = map[string]any{
	"max_new_tokens":   100,
	"min_new_tokens":   10,
	"return_full_text": true,
	"return_tensors":   false,
	"do_sample":        false,
}

// Engine runs prompts on the browser's on-device inference engine, creating
// it through the guard on first use.
type Engine struct {
	guard *engine.Guard
	host  engine.Host
	log   *slog.Logger
}

func NewEngine(guard *engine.Guard, host engine.Host, log *slog.Logger) *Engine {
	return &Engine{guard: guard, host: host, log: log}
}

func (a *Engine) Name() string { return ProviderEngine }

func (a *Engine) Invoke(ctx context.Context, p string) Result {
	if err := a.guard.EnsureReady(ctx); err != nil {
		return Failure(KindEngineUnavailable, engineUnavailable, err)
	}

	raw, err := a.host.RunEngine(ctx, engine.RunRequest{
		Args:    []any{engineChatInput(p)},
		Options: engineRunOptions,
	})
	if err != nil {
		a.log.Error("engine run failed", "provider", a.Name(), "err", err)
		return Failure(KindTransport, FallbackText, err)
	}

	text, schema, err := engine.ParseOutput(raw)
	if err != nil {
		kind := KindTransport
		if errors.Is(err, engine.ErrUnexpectedShape) {
			kind = KindUnexpectedShape
		}
		a.log.Warn("failed to parse engine output", "provider", a.Name(), "err", err)
		return Failure(kind, FallbackText, err)
	}
	if text == "" {
		a.log.Warn("engine returned empty text", "provider", a.Name(), "schema", schema)
		return Failure(KindEmpty, FallbackText, nil)
	}
	return Success(text)
}

func engineChatInput(p string) []prompt.Message {
	return []prompt.Message{
		{Role: "system", Content: engineSystemPrompt},
		{Role: "user", Content: "/no_think " + prompt.Truncate(p, EnginePromptLimit) + " /no_think"},
	}
}
