package llm

import (
	"context"
	"log/slog"

	"github.com/openai/openai-go/v3"

	"extension-hub/internal/kv"
	"extension-hub/internal/settings"
	"extension-hub/internal/tools"
)

const (
	DefaultToolsModel   = "gpt-4o"
	toolsSystemPrompt   = "You are a browser assistant. When the user asks to open or group tabs, call the matching tool with the full URLs. Otherwise answer in plain text."
	toolsMissingKeyText = "Tools API key is not set. Please configure it in the extension settings."
)

// ToolResolver executes tool calls returned by a model.
type ToolResolver interface {
	Resolve(ctx context.Context, calls []tools.Call) (string, bool)
}

// Tools calls an OpenAI-compatible endpoint with the tab tools declared. A
// reply may be plain text or a set of tool calls; only the first recognized
// call is executed.
type Tools struct {
	store    kv.Store
	baseURL  string
	resolver ToolResolver
	log      *slog.Logger
}

func NewTools(store kv.Store, baseURL string, resolver ToolResolver, log *slog.Logger) *Tools {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	return &Tools{store: store, baseURL: baseURL, resolver: resolver, log: log}
}

func (a *Tools) Name() string { return ProviderTools }

func (a *Tools) Invoke(ctx context.Context, prompt string) Result {
	cfg, err := settings.ReadProvider(ctx, a.store, settings.ProviderKeys{
		APIKey: settings.KeyToolsAPIKey,
		Model:  settings.KeyToolsModel,
	})
	if err != nil {
		a.log.Warn("failed to read provider settings", "provider", a.Name(), "err", err)
	}
	if cfg.APIKey == "" {
		return Failure(KindConfigMissing, toolsMissingKeyText, nil)
	}

	resp, err := complete(ctx, chatRequest{
		BaseURL: a.baseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.ModelOr(DefaultToolsModel),
		System:  toolsSystemPrompt,
		Prompt:  prompt,
		Tools:   tabTools(),
	})
	if err != nil {
		a.log.Error("chat completion failed", "provider", a.Name(), "err", err)
		return Failure(KindTransport, FallbackText, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		a.log.Warn("chat completion returned no choices", "provider", a.Name())
		return Failure(KindEmpty, FallbackText, nil)
	}

	if calls := a.toolCalls(resp.Choices[0].Message); len(calls) > 0 {
		if text, ok := a.resolver.Resolve(ctx, calls); ok {
			return Success(text)
		}
	}
	content := firstContent(resp)
	if content == "" {
		a.log.Warn("chat completion returned neither text nor a known tool call", "provider", a.Name())
		return Failure(KindEmpty, FallbackText, nil)
	}
	return Success(content)
}

func (a *Tools) toolCalls(msg openai.ChatCompletionMessage) []tools.Call {
	var calls []tools.Call
	for _, tc := range msg.ToolCalls {
		args, err := tools.ParseArgs(tc.Function.Arguments)
		if err != nil {
			a.log.Warn("skipping tool call with bad arguments", "tool", tc.Function.Name, "err", err)
			continue
		}
		calls = append(calls, tools.Call{Name: tc.Function.Name, Args: args})
	}
	return calls
}

func tabTools() []openai.ChatCompletionToolUnionParam {
	urls := openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"urls": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Absolute URLs of the tabs",
			},
		},
		"required": []string{"urls"},
	}
	return []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        tools.NameOpenTabs,
			Description: openai.String("Open each URL in a new browser tab."),
			Parameters:  urls,
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        tools.NameGroupTabs,
			Description: openai.String("Group the open tabs whose URLs match into one labelled tab group."),
			Parameters:  urls,
		}),
	}
}
