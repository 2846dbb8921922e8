package llm

import (
	"context"
	"log/slog"

	"extension-hub/internal/kv"
	"extension-hub/internal/settings"
)

const (
	TogetherBaseURL        = "https://api.together.xyz/v1"
	DefaultTogetherModel   = "deepseek-ai/DeepSeek-V3"
	togetherMissingKeyText = "Together AI API key is not set. Please configure it in the extension settings."
)

// Together calls Together AI's OpenAI-compatible chat endpoint. It sends the
// prompt as a single user turn with no system prompt.
type Together struct {
	store   kv.Store
	baseURL string
	log     *slog.Logger
}

func NewTogether(store kv.Store, baseURL string, log *slog.Logger) *Together {
	if baseURL == "" {
		baseURL = TogetherBaseURL
	}
	return &Together{store: store, baseURL: baseURL, log: log}
}

func (a *Together) Name() string { return ProviderTogether }

func (a *Together) Invoke(ctx context.Context, prompt string) Result {
	cfg, err := settings.ReadProvider(ctx, a.store, settings.ProviderKeys{
		APIKey: settings.KeyTogetherAPIKey,
		Model:  settings.KeyTogetherModel,
	})
	if err != nil {
		a.log.Warn("failed to read provider settings", "provider", a.Name(), "err", err)
	}
	if cfg.APIKey == "" {
		return Failure(KindConfigMissing, togetherMissingKeyText, nil)
	}

	resp, err := complete(ctx, chatRequest{
		BaseURL: a.baseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.ModelOr(DefaultTogetherModel),
		Prompt:  prompt,
	})
	if err != nil {
		a.log.Error("chat completion failed", "provider", a.Name(), "err", err)
		return Failure(KindTransport, FallbackText, err)
	}
	content := firstContent(resp)
	if content == "" {
		a.log.Warn("chat completion returned no content", "provider", a.Name())
		return Failure(KindEmpty, FallbackText, nil)
	}
	return Success(content)
}
