package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extension-hub/internal/kv"
	"extension-hub/internal/logger"
	"extension-hub/internal/settings"
)

type capturedRequest struct {
	Path   string
	Auth   string
	Body   map[string]any
	Called int
}

func completionServer(t *testing.T, status int, reply string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Called++
		captured.Path = r.URL.Path
		captured.Auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&captured.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func textCompletion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func storeWith(t *testing.T, values map[string]string) kv.Store {
	t.Helper()
	store := kv.NewMemory()
	for k, v := range values {
		require.NoError(t, kv.SetString(context.Background(), store, k, v))
	}
	return store
}

func messageContents(t *testing.T, body map[string]any) []string {
	t.Helper()
	raw, ok := body["messages"].([]any)
	require.True(t, ok, "messages missing from request")
	var contents []string
	for _, m := range raw {
		msg := m.(map[string]any)
		contents = append(contents, msg["role"].(string)+":"+msg["content"].(string))
	}
	return contents
}

func TestOpenAIInvoke(t *testing.T) {
	srv, req := completionServer(t, http.StatusOK, textCompletion("Paris."))
	store := storeWith(t, map[string]string{settings.KeyOpenAIAPIKey: "sk-test"})

	res := NewOpenAI(store, srv.URL, logger.Discard()).Invoke(context.Background(), "capital of France?")

	require.True(t, res.OK)
	assert.Equal(t, "Paris.", res.Text)
	assert.Equal(t, "/chat/completions", req.Path)
	assert.Equal(t, "Bearer sk-test", req.Auth)
	assert.Equal(t, DefaultOpenAIModel, req.Body["model"])
	assert.InDelta(t, 0.7, req.Body["temperature"], 1e-9)
	assert.Equal(t, []string{"system:" + AnswerSystemPrompt, "user:capital of France?"}, messageContents(t, req.Body))
}

func TestOpenAIUsesStoredModel(t *testing.T) {
	srv, req := completionServer(t, http.StatusOK, textCompletion("ok"))
	store := storeWith(t, map[string]string{
		settings.KeyOpenAIAPIKey: "sk-test",
		settings.KeyOpenAIModel:  "gpt-4o-mini",
	})

	res := NewOpenAI(store, srv.URL, logger.Discard()).Invoke(context.Background(), "q")

	require.True(t, res.OK)
	assert.Equal(t, "gpt-4o-mini", req.Body["model"])
}

func TestHostedAdaptersNeverFail(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		reply    string
		wantKind ErrorKind
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, KindTransport},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, KindTransport},
		{"no choices", http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, KindEmpty},
		{"empty content", http.StatusOK, textCompletion(""), KindEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := completionServer(t, tt.status, tt.reply)
			store := storeWith(t, map[string]string{
				settings.KeyOpenAIAPIKey:      "k",
				settings.KeyTogetherAPIKey:    "k",
				settings.KeyHuggingFaceAPIKey: "k",
			})
			log := logger.Discard()
			for _, a := range []Adapter{
				NewOpenAI(store, srv.URL, log),
				NewTogether(store, srv.URL, log),
				NewHuggingFace(store, srv.URL, log),
			} {
				res := a.Invoke(context.Background(), "q")
				assert.False(t, res.OK, a.Name())
				assert.Equal(t, tt.wantKind, res.Kind, a.Name())
				assert.Equal(t, FallbackText, res.Text, a.Name())
			}
		})
	}
}

func TestHostedAdaptersMissingKeyMakeNoRequest(t *testing.T) {
	srv, req := completionServer(t, http.StatusOK, textCompletion("unused"))
	log := logger.Discard()
	store := kv.NewMemory()

	for _, a := range []Adapter{
		NewOpenAI(store, srv.URL, log),
		NewTogether(store, srv.URL, log),
		NewHuggingFace(store, srv.URL, log),
	} {
		res := a.Invoke(context.Background(), "q")
		assert.False(t, res.OK, a.Name())
		assert.Equal(t, KindConfigMissing, res.Kind, a.Name())
		assert.Contains(t, res.Text, "Please configure it in the extension settings.", a.Name())
	}
	assert.Zero(t, req.Called)
}

func TestTogetherSendsSingleUserTurn(t *testing.T) {
	srv, req := completionServer(t, http.StatusOK, textCompletion("Summary."))
	store := storeWith(t, map[string]string{settings.KeyTogetherAPIKey: "tg"})

	res := NewTogether(store, srv.URL, logger.Discard()).Invoke(context.Background(), "summarize")

	require.True(t, res.OK)
	assert.Equal(t, "Summary.", res.Text)
	assert.Equal(t, DefaultTogetherModel, req.Body["model"])
	assert.NotContains(t, req.Body, "temperature")
	assert.Equal(t, []string{"user:summarize"}, messageContents(t, req.Body))
}

func TestHuggingFaceRouting(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		expected string
	}{
		{"defaults", nil, DefaultHuggingFaceModel},
		{"auto routing", map[string]string{settings.KeyHuggingFaceProvider: "auto"}, DefaultHuggingFaceModel},
		{"pinned provider", map[string]string{settings.KeyHuggingFaceProvider: "together"}, DefaultHuggingFaceModel + ":together"},
		{"custom model", map[string]string{
			settings.KeyHuggingFaceModel:    "Qwen/Qwen2.5-7B-Instruct",
			settings.KeyHuggingFaceProvider: "novita",
		}, "Qwen/Qwen2.5-7B-Instruct:novita"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, req := completionServer(t, http.StatusOK, textCompletion("hi"))
			values := map[string]string{settings.KeyHuggingFaceAPIKey: "hf"}
			for k, v := range tt.values {
				values[k] = v
			}

			res := NewHuggingFace(storeWith(t, values), srv.URL, logger.Discard()).Invoke(context.Background(), "q")

			require.True(t, res.OK)
			assert.Equal(t, tt.expected, req.Body["model"])
			assert.Equal(t, "Bearer hf", req.Auth)
		})
	}
}
