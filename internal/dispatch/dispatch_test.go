package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"extension-hub/internal/browser"
	"extension-hub/internal/kv"
	"extension-hub/internal/llm"
	"extension-hub/internal/logger"
	"extension-hub/internal/prompt"
	"extension-hub/internal/settings"
	"extension-hub/internal/tools"
)

type fixedSelector struct {
	adapter llm.Adapter
}

func (s fixedSelector) Select(context.Context) llm.Adapter { return s.adapter }

func envelope(t *testing.T, kind string, data any) Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return Envelope{Type: kind, Data: raw}
}

func TestPageSummarizeEndToEnd(t *testing.T) {
	adapter := llm.NewMockAdapter(llm.ProviderOpenAI)
	adapter.On("Invoke", mock.Anything, "answer this question: Summarize, with this data: Lorem ipsum...").
		Return(llm.Success("Short summary.")).Once()
	store := kv.NewMemory()

	d := New(fixedSelector{adapter}, new(browser.MockHost), store, logger.Discard())
	raw := []byte(`{"kind":"page_summarize","data":{"prompt":"Summarize","textContent":"Lorem ipsum...","url":"https://ex.com","siteName":"Ex"}}`)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))

	out, ok := d.Handle(context.Background(), env)

	require.True(t, ok)
	encoded, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"page_summarize_result","result":"Short summary.","prompt":"Summarize","url":"https://ex.com","siteName":"Ex"}`, string(encoded))
	adapter.AssertExpectations(t)

	last, err := kv.GetString(context.Background(), store, settings.KeyLastPageSummarization)
	require.NoError(t, err)
	assert.Equal(t, "Short summary.", last)
}

func TestPageQAKinds(t *testing.T) {
	tests := []struct {
		name string
		kind string
		data map[string]string
		want string
	}{
		{"page_qa with textContent", KindPageQA, map[string]string{"prompt": "Who?", "textContent": "Ada wrote it."}, "answer this question: Who?, with this data: Ada wrote it."},
		{"analyze_page with fullText", KindAnalyzePage, map[string]string{"prompt": "When?", "fullText": "In 1843."}, "answer this question: When?, with this data: In 1843."},
		{"empty context", KindPageQA, map[string]string{"prompt": "Why?"}, "answer this question: Why?, with this data: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := llm.NewMockAdapter(llm.ProviderOpenAI)
			adapter.On("Invoke", mock.Anything, tt.want).Return(llm.Success("answer")).Once()
			store := kv.NewMemory()

			out, ok := New(fixedSelector{adapter}, new(browser.MockHost), store, logger.Discard()).
				Handle(context.Background(), envelope(t, tt.kind, tt.data))

			require.True(t, ok)
			assert.Equal(t, KindAIResult, out.Type)
			assert.Equal(t, "answer", out.Result)
			assert.Equal(t, tt.data["prompt"], out.Prompt)
			adapter.AssertExpectations(t)

			last, _ := kv.GetString(context.Background(), store, settings.KeyLastQuestionAnswer)
			assert.Equal(t, "answer", last)
		})
	}
}

func TestTabSummarizeUsesHistory(t *testing.T) {
	host := new(browser.MockHost)
	host.On("SearchHistory", mock.Anything, browser.HistoryQuery{MaxResults: 200}).
		Return([]prompt.HistoryItem{{URL: "https://go.dev", Title: "Go"}}, nil).Once()
	adapter := llm.NewMockAdapter(llm.ProviderTogether)
	adapter.On("Invoke", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(p, "Use the following data of recently used tabs : [") &&
			strings.Contains(p, `"url":"https://go.dev"`) &&
			strings.HasSuffix(p, "to answer the following prompt: What did I read?.")
	})).Return(llm.Success("You read about Go.")).Once()

	out, ok := New(fixedSelector{adapter}, host, kv.NewMemory(), logger.Discard()).
		Handle(context.Background(), envelope(t, KindTabSummarize, map[string]string{"prompt": "What did I read?"}))

	require.True(t, ok)
	assert.Equal(t, Outbound{Type: KindTabSummarizeResult, Result: "You read about Go.", Prompt: "What did I read?"}, out)
	host.AssertExpectations(t)
	adapter.AssertExpectations(t)
}

func TestTabSummarizeHistoryFailureStillAnswers(t *testing.T) {
	host := new(browser.MockHost)
	host.On("SearchHistory", mock.Anything, mock.Anything).Return(nil, errors.New("no browser connected")).Once()
	adapter := llm.NewMockAdapter(llm.ProviderOpenAI)
	adapter.On("Invoke", mock.Anything, "Use the following data of recently used tabs : [] to answer the following prompt: q.").
		Return(llm.Success("nothing")).Once()

	out, ok := New(fixedSelector{adapter}, host, kv.NewMemory(), logger.Discard()).
		Handle(context.Background(), envelope(t, KindTabSummarize, map[string]string{"prompt": "q"}))

	require.True(t, ok)
	assert.Equal(t, "nothing", out.Result)
	adapter.AssertExpectations(t)
}

func TestChatMessageFormats(t *testing.T) {
	messages := []prompt.Message{
		{Role: "system", Content: "You are a helpful assistant. You are trustworthy and helpful."},
		{Role: "user", Content: "Hi"},
	}
	transcript := "system: You are a helpful assistant. You are trustworthy and helpful.\nuser: Hi"

	tests := []struct {
		name string
		data any
		want string
	}{
		{"bare array", messages, transcript},
		{"object with messages", map[string]any{"messages": messages}, transcript},
		{"object with prompt", map[string]string{"prompt": "Hello there"}, "Hello there"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := llm.NewMockAdapter(llm.ProviderOpenAI)
			adapter.On("Invoke", mock.Anything, tt.want).Return(llm.Success("Hello!")).Once()

			out, ok := New(fixedSelector{adapter}, new(browser.MockHost), kv.NewMemory(), logger.Discard()).
				Handle(context.Background(), envelope(t, KindChatMessage, tt.data))

			require.True(t, ok)
			assert.Equal(t, Outbound{Type: KindChatMessageResult, Result: "Hello!"}, out)
			adapter.AssertExpectations(t)
		})
	}
}

func TestFailedResultRelaysFallbackText(t *testing.T) {
	adapter := llm.NewMockAdapter(llm.ProviderLocal)
	adapter.On("Invoke", mock.Anything, mock.Anything).
		Return(llm.Failure(llm.KindConfigMissing, llm.LocalMissingURLText, nil)).Once()

	out, ok := New(fixedSelector{adapter}, new(browser.MockHost), kv.NewMemory(), logger.Discard()).
		Handle(context.Background(), envelope(t, KindPageQA, map[string]string{"prompt": "q"}))

	require.True(t, ok)
	assert.Equal(t, llm.LocalMissingURLText, out.Result)
}

func TestEmptyTextBecomesFallback(t *testing.T) {
	adapter := llm.NewMockAdapter(llm.ProviderOpenAI)
	adapter.On("Invoke", mock.Anything, mock.Anything).Return(llm.Result{}).Once()

	out, ok := New(fixedSelector{adapter}, new(browser.MockHost), kv.NewMemory(), logger.Discard()).
		Handle(context.Background(), envelope(t, KindPageSummarize, map[string]string{"prompt": "q"}))

	require.True(t, ok)
	assert.Equal(t, llm.FallbackText, out.Result)
}

func TestUnknownKindsAreIgnored(t *testing.T) {
	adapter := llm.NewMockAdapter(llm.ProviderOpenAI)
	d := New(fixedSelector{adapter}, new(browser.MockHost), kv.NewMemory(), logger.Discard())

	for _, env := range []Envelope{
		{Type: "page_summarize_prompt"},
		{Type: "ai_result", Data: json.RawMessage(`{"result":"x"}`)},
		{},
	} {
		_, ok := d.Handle(context.Background(), env)
		assert.False(t, ok, env.Type)
	}
	adapter.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestBadPayloadIsDropped(t *testing.T) {
	adapter := llm.NewMockAdapter(llm.ProviderOpenAI)
	_, ok := New(fixedSelector{adapter}, new(browser.MockHost), kv.NewMemory(), logger.Discard()).
		Handle(context.Background(), Envelope{Type: KindPageQA, Data: json.RawMessage(`"just a string"`)})

	assert.False(t, ok)
	adapter.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestStoreFailureDoesNotBlockReply(t *testing.T) {
	store := new(kv.MockStore)
	store.On("Set", mock.Anything, settings.KeyLastQuestionAnswer, mock.Anything).Return(errors.New("redis down")).Once()
	adapter := llm.NewMockAdapter(llm.ProviderOpenAI)
	adapter.On("Invoke", mock.Anything, mock.Anything).Return(llm.Success("ok")).Once()

	out, ok := New(fixedSelector{adapter}, new(browser.MockHost), store, logger.Discard()).
		Handle(context.Background(), envelope(t, KindPageQA, map[string]string{"prompt": "q"}))

	require.True(t, ok)
	assert.Equal(t, "ok", out.Result)
	store.AssertExpectations(t)
}

func TestConcurrentHandlersLastWriteWins(t *testing.T) {
	adapter := llm.NewMockAdapter(llm.ProviderOpenAI)
	adapter.On("Invoke", mock.Anything, mock.Anything).Return(llm.Success("same")).Times(8)
	store := kv.NewMemory()
	d := New(fixedSelector{adapter}, new(browser.MockHost), store, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := d.Handle(context.Background(), Envelope{Type: KindPageQA, Data: json.RawMessage(`{"prompt":"q"}`)})
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	last, err := kv.GetString(context.Background(), store, settings.KeyLastQuestionAnswer)
	require.NoError(t, err)
	assert.Equal(t, "same", last)
	adapter.AssertExpectations(t)
}

func TestHostedProvidersWithNullBodyFallBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("null"))
	}))
	t.Cleanup(srv.Close)

	store := kv.NewMemory()
	for _, key := range []string{settings.KeyOpenAIAPIKey, settings.KeyTogetherAPIKey, settings.KeyHuggingFaceAPIKey, settings.KeyToolsAPIKey} {
		require.NoError(t, kv.SetString(context.Background(), store, key, "k"))
	}
	log := logger.Discard()
	host := new(browser.MockHost)

	adapters := []llm.Adapter{
		llm.NewOpenAI(store, srv.URL, log),
		llm.NewTogether(store, srv.URL, log),
		llm.NewHuggingFace(store, srv.URL, log),
		llm.NewTools(store, srv.URL, tools.NewResolver(host, log), log),
	}
	for _, adapter := range adapters {
		t.Run(adapter.Name(), func(t *testing.T) {
			d := New(fixedSelector{adapter}, host, store, log)
			env := envelope(t, KindPageQA, map[string]string{"prompt": "Who?", "textContent": "Ada"})

			var out Outbound
			var ok bool
			require.NotPanics(t, func() {
				out, ok = d.Handle(context.Background(), env)
			})

			require.True(t, ok)
			assert.Equal(t, KindAIResult, out.Type)
			assert.Equal(t, llm.FallbackText, out.Result)
		})
	}
}
