package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"extension-hub/internal/kv"
	"extension-hub/internal/prompt"
	"extension-hub/internal/settings"
)

// Texts returned by the local adapter.
const (
	LocalMissingURLText = "Local model URL is not set. Please configure it in the extension settings."
	LocalNoResponseText = "No response from local model."
	LocalErrorText      = "An unexpected error occurred while contacting the local model."
)

const defaultLocalTimeout = 120 * time.Second

// Local posts to a user-run chat endpoint (Ollama's /api/chat shape) at the
// exact URL configured under local_model_url.
type Local struct {
	store  kv.Store
	client *http.Client
	log    *slog.Logger
}

type localChatRequest struct {
	Model    string           `json:"model"`
	Messages []prompt.Message `json:"messages"`
	Stream   bool             `json:"stream"`
}

type localChatResponse struct {
	Message *prompt.Message `json:"message"`
}

// NewLocal builds the adapter. A nil client gets a default with a timeout.
func NewLocal(store kv.Store, client *http.Client, log *slog.Logger) *Local {
	if client == nil {
		client = &http.Client{Timeout: defaultLocalTimeout}
	}
	return &Local{store: store, client: client, log: log}
}

func (a *Local) Name() string { return ProviderLocal }

func (a *Local) Invoke(ctx context.Context, p string) Result {
	cfg, err := settings.ReadProvider(ctx, a.store, settings.ProviderKeys{
		Model: settings.KeyLocalModelName,
		Extra: []string{settings.KeyLocalModelURL},
	})
	if err != nil {
		a.log.Warn("failed to read provider settings", "provider", a.Name(), "err", err)
	}
	endpoint := cfg.ExtraOr(settings.KeyLocalModelURL, "")
	if endpoint == "" {
		return Failure(KindConfigMissing, LocalMissingURLText, nil)
	}

	content, err := a.chat(ctx, endpoint, cfg.Model, p)
	if err != nil {
		a.log.Error("local model request failed", "provider", a.Name(), "url", endpoint, "err", err)
		return Failure(KindTransport, LocalErrorText, err)
	}
	if content == "" {
		return Failure(KindEmpty, LocalNoResponseText, nil)
	}
	return Success(content)
}

func (a *Local) chat(ctx context.Context, endpoint, model, p string) (string, error) {
	body, err := json.Marshal(localChatRequest{
		Model:    model,
		Messages: []prompt.Message{{Role: "user", Content: p}},
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("local: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("local: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("local: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("local: unexpected status %d", resp.StatusCode)
	}

	var chatResp localChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("local: decode response: %w", err)
	}
	if chatResp.Message == nil {
		return "", nil
	}
	return strings.TrimSpace(chatResp.Message.Content), nil
}
