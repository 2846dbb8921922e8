// Package llm holds one adapter per text-generation backend and the registry
// that selects between them. Adapters never return errors: every outcome is a
// Result whose Text is safe to show to the user.
package llm

import "context"

// Provider names as persisted under the ai_provider key.
const (
	ProviderOpenAI      = "openai"
	ProviderTogether    = "togetherai"
	ProviderHuggingFace = "huggingface"
	ProviderLocal       = "local"
	ProviderEngine      = "ml_engine"
	ProviderTools       = "tools"
)

// FallbackText is shown when a backend produced nothing usable.
const FallbackText = "No response received. Please try again."

// ErrorKind tags why an invocation did not produce an answer.
type ErrorKind string

const (
	KindConfigMissing     ErrorKind = "config_missing"
	KindTransport         ErrorKind = "transport"
	KindUnexpectedShape   ErrorKind = "unexpected_shape"
	KindEngineUnavailable ErrorKind = "engine_unavailable"
	KindEmpty             ErrorKind = "empty"
)

// Result is the outcome of one adapter call. Text always holds something
// displayable: the answer, guidance, or a fallback message.
type Result struct {
	OK   bool
	Text string
	Kind ErrorKind
	Err  error
}

// Success wraps a generated answer.
func Success(text string) Result {
	return Result{OK: true, Text: text}
}

// Failure builds a non-OK result carrying user-facing text.
func Failure(kind ErrorKind, text string, err error) Result {
	return Result{Kind: kind, Text: text, Err: err}
}

// Adapter sends one prompt to one backend. Implementations read their
// configuration from storage on every call and perform no retries.
type Adapter interface {
	Name() string
	Invoke(ctx context.Context, prompt string) Result
}
