// Package settings names the persistent and session storage keys and reads
// per-provider configuration from them. Keys are the durable schema: adding a
// provider means adding keys, never migrating stored data.
package settings

import (
	"context"
	"errors"

	"extension-hub/internal/kv"
)

// Persistent store keys.
const (
	// Provider selection
	KeyAIProvider = "ai_provider"

	// OpenAI
	KeyOpenAIAPIKey = "openai_api_key"
	KeyOpenAIModel  = "openai_ai_model"

	// Together AI
	KeyTogetherAPIKey = "togetherai_api_key"
	KeyTogetherModel  = "togetherai_model"

	// Hugging Face inference router
	KeyHuggingFaceAPIKey   = "hugging_face_api_key"
	KeyHuggingFaceModel    = "hugging_face_model"
	KeyHuggingFaceProvider = "hugging_face_provider"

	// Local model endpoint
	KeyLocalModelURL  = "local_model_url"
	KeyLocalModelName = "local_model_name"

	// Tool-enabled assistant
	KeyToolsAPIKey = "tools_api_key"
	KeyToolsModel  = "tools_ai_model"

	// ML engine
	KeyEngineMetadata = "engine_metadata"

	// Last answers shown by the UI
	KeyLastQuestionAnswer    = "last_question_answer"
	KeyLastPageSummarization = "last_page_summarization"
	KeyLastTabSummarization  = "last_tab_summarization"
	KeyLastChatMessage       = "last_chat_message"
)

// Session store keys.
const (
	KeyEngineCreated = "engine_created"
)

// ProviderKeys names the storage keys one provider reads.
type ProviderKeys struct {
	APIKey string
	Model  string
	Extra  []string
}

// ProviderConfig is a provider's configuration as stored at call time. Empty
// fields mean "use the provider default".
type ProviderConfig struct {
	APIKey string
	Model  string
	Extra  map[string]string
}

// ExtraOr returns the extra value for key, or fallback when unset.
func (c ProviderConfig) ExtraOr(key, fallback string) string {
	if v := c.Extra[key]; v != "" {
		return v
	}
	return fallback
}

// ModelOr returns the configured model, or fallback when unset.
func (c ProviderConfig) ModelOr(fallback string) string {
	if c.Model != "" {
		return c.Model
	}
	return fallback
}

// ReadProvider loads every key in keys. Missing keys are left empty; store
// errors are joined and returned alongside whatever was read.
func ReadProvider(ctx context.Context, store kv.Store, keys ProviderKeys) (ProviderConfig, error) {
	var (
		cfg  = ProviderConfig{Extra: make(map[string]string, len(keys.Extra))}
		errs []error
	)
	read := func(key string) string {
		if key == "" {
			return ""
		}
		v, err := kv.GetString(ctx, store, key)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	cfg.APIKey = read(keys.APIKey)
	cfg.Model = read(keys.Model)
	for _, k := range keys.Extra {
		if v := read(k); v != "" {
			cfg.Extra[k] = v
		}
	}
	return cfg, errors.Join(errs...)
}
