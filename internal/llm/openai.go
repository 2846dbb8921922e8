package llm

import (
	"context"
	"log/slog"

	"extension-hub/internal/kv"
	"extension-hub/internal/settings"
)

const (
	OpenAIBaseURL        = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o"
	defaultOpenAITemp    = 0.7
	openAIMissingKeyText = "OpenAI API key is not set. Please configure it in the extension settings."
)

// AnswerSystemPrompt steers hosted models toward the supplied page data.
const AnswerSystemPrompt = "You are a helpful assistant. Answer this question to the best of your ability, try and only use the context provided with the question. If the information is not present in the context say you do not know. If you are asked to define words it is ok to use other data you know."

// OpenAI calls the OpenAI Chat Completions API.
type OpenAI struct {
	store   kv.Store
	baseURL string
	log     *slog.Logger
}

// NewOpenAI builds the adapter. An empty baseURL targets api.openai.com.
func NewOpenAI(store kv.Store, baseURL string, log *slog.Logger) *OpenAI {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	return &OpenAI{store: store, baseURL: baseURL, log: log}
}

func (a *OpenAI) Name() string { return ProviderOpenAI }

func (a *OpenAI) Invoke(ctx context.Context, prompt string) Result {
	cfg, err := settings.ReadProvider(ctx, a.store, settings.ProviderKeys{
		APIKey: settings.KeyOpenAIAPIKey,
		Model:  settings.KeyOpenAIModel,
	})
	if err != nil {
		a.log.Warn("failed to read provider settings", "provider", a.Name(), "err", err)
	}
	if cfg.APIKey == "" {
		return Failure(KindConfigMissing, openAIMissingKeyText, nil)
	}

	resp, err := complete(ctx, chatRequest{
		BaseURL:     a.baseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.ModelOr(DefaultOpenAIModel),
		System:      AnswerSystemPrompt,
		Prompt:      prompt,
		Temperature: defaultOpenAITemp,
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
