package llm

import (
	"context"
	"log/slog"

	"extension-hub/internal/kv"
	"extension-hub/internal/settings"
)

const (
	HuggingFaceBaseURL        = "https://router.huggingface.co/v1"
	DefaultHuggingFaceModel   = "meta-llama/Llama-3.1-8B-Instruct"
	DefaultHuggingFaceRouting = "auto"
	huggingFaceMissingKeyText = "Hugging Face API key is not set. Please configure it in the extension settings."
)

// HuggingFace calls the Hugging Face inference router. A non-auto inference
// provider is pinned by suffixing the model id, e.g. "model:together".
type HuggingFace struct {
	store   kv.Store
	baseURL string
	log     *slog.Logger
}

func NewHuggingFace(store kv.Store, baseURL string, log *slog.Logger) *HuggingFace {
	if baseURL == "" {
		baseURL = HuggingFaceBaseURL
	}
	return &HuggingFace{store: store, baseURL: baseURL, log: log}
}

func (a *HuggingFace) Name() string { return ProviderHuggingFace }

func (a *HuggingFace) Invoke(ctx context.Context, prompt string) Result {
	cfg, err := settings.ReadProvider(ctx, a.store, settings.ProviderKeys{
		APIKey: settings.KeyHuggingFaceAPIKey,
		Model:  settings.KeyHuggingFaceModel,
		Extra:  []string{settings.KeyHuggingFaceProvider},
	})
	if err != nil {
		a.log.Warn("failed to read provider settings", "provider", a.Name(), "err", err)
	}
	if cfg.APIKey == "" {
		return Failure(KindConfigMissing, huggingFaceMissingKeyText, nil)
	}

	resp, err := complete(ctx, chatRequest{
		BaseURL: a.baseURL,
		APIKey:  cfg.APIKey,
		Model:   routedModel(cfg),
		System:  AnswerSystemPrompt,
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

func routedModel(cfg settings.ProviderConfig) string {
	model := cfg.ModelOr(DefaultHuggingFaceModel)
	routing := cfg.ExtraOr(settings.KeyHuggingFaceProvider, DefaultHuggingFaceRouting)
	if routing == DefaultHuggingFaceRouting {
		return model
	}
	return model + ":" + routing
}
