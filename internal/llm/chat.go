package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultChatTimeout = 60 * time.Second

// chatRequest is one call to an OpenAI-compatible chat completions endpoint.
type chatRequest struct {
	BaseURL     string
	APIKey      string
	Model       string
	System      string
	Prompt      string
	Temperature float64
	Tools       []openai.ChatCompletionToolUnionParam
}

// newChatClient builds a client for one call. Retries are disabled: a
// failed request falls back immediately.
func newChatClient(baseURL, apiKey string) openai.Client {
	return openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(withTrailingSlash(baseURL)),
		option.WithMaxRetries(0),
	)
}

func complete(ctx context.Context, req chatRequest) (*openai.ChatCompletion, error) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultChatTimeout)
	defer cancel()

	cli := newChatClient(req.BaseURL, req.APIKey)
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: buildMessages(req.System, req.Prompt),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = req.Tools
	}
	resp, err := cli.Chat.Completions.New(reqCtx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	return resp, nil
}

// firstContent returns choices[0].message.content, or "" when absent.
func firstContent(resp *openai.ChatCompletion) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func buildMessages(system, user string) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	return append(messages, openai.UserMessage(user))
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
