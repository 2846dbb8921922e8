// Package dispatch turns one UI request into one prompt, one adapter call and
// at most one reply.
package dispatch

import (
	"context"
	"log/slog"

	"extension-hub/internal/browser"
	"extension-hub/internal/kv"
	"extension-hub/internal/llm"
	"extension-hub/internal/prompt"
	"extension-hub/internal/settings"
)

// historyQuery matches the browser's recent-history lookup used for tab
// summaries.
var historyQuery = browser.HistoryQuery{Text: "", StartTime: 0, MaxResults: 200}

// Selector resolves the adapter for one request.
type Selector interface {
	Select(ctx context.Context) llm.Adapter
}

// Dispatcher handles inbound envelopes. It keeps no per-request state and is
// safe to call from many goroutines; concurrent writes to the last-answer
// keys are last-write-wins.
type Dispatcher struct {
	selector Selector
	host     browser.Host
	store    kv.Store
	log      *slog.Logger
}

func New(selector Selector, host browser.Host, store kv.Store, log *slog.Logger) *Dispatcher {
	return &Dispatcher{selector: selector, host: host, store: store, log: log}
}

type route struct {
	result  string
	lastKey string
	build   func(d *Dispatcher, ctx context.Context, p Payload) string
	echo    bool
}

var routes = map[string]route{
	KindPageQA:        {result: KindAIResult, lastKey: settings.KeyLastQuestionAnswer, build: buildPagePrompt, echo: true},
	KindAnalyzePage:   {result: KindAIResult, lastKey: settings.KeyLastQuestionAnswer, build: buildPagePrompt, echo: true},
	KindPageSummarize: {result: KindPageSummarizeResult, lastKey: settings.KeyLastPageSummarization, build: buildPagePrompt, echo: true},
	KindTabSummarize:  {result: KindTabSummarizeResult, lastKey: settings.KeyLastTabSummarization, build: buildTabPrompt, echo: true},
	KindChatMessage:   {result: KindChatMessageResult, lastKey: settings.KeyLastChatMessage, build: buildChatPrompt},
}

// Handle processes one envelope. It reports false, and produces nothing, for
// unknown kinds and undecodable payloads.
func (d *Dispatcher) Handle(ctx context.Context, env Envelope) (Outbound, bool) {
	kind := env.MessageKind()
	r, ok := routes[kind]
	if !ok {
		d.log.Debug("ignoring message", "kind", kind)
		return Outbound{}, false
	}

	payload, err := decodePayload(env.Data)
	if err != nil {
		d.log.Warn("dropping message with bad payload", "kind", kind, "err", err)
		return Outbound{}, false
	}

	adapter := d.selector.Select(ctx)
	res := adapter.Invoke(ctx, r.build(d, ctx, payload))
	if !res.OK {
		d.log.Warn("provider returned no answer", "kind", kind, "provider", adapter.Name(), "reason", res.Kind, "err", res.Err)
	}
	text := res.Text
	if text == "" {
		text = llm.FallbackText
	}

	if err := kv.SetString(ctx, d.store, r.lastKey, text); err != nil {
		d.log.Warn("failed to store last answer", "kind", kind, "key", r.lastKey, "err", err)
	}

	out := Outbound{Type: r.result, Result: text}
	if r.echo {
		out.Prompt = payload.Prompt
		out.URL = payload.URL
		out.SiteName = payload.SiteName
	}
	return out, true
}

func buildPagePrompt(_ *Dispatcher, _ context.Context, p Payload) string {
	return prompt.Build(p.Prompt, p.PageText())
}

// buildTabPrompt asks about recent history. A failed lookup still produces a
// prompt, with an empty list.
func buildTabPrompt(d *Dispatcher, ctx context.Context, p Payload) string {
	items, err := d.host.SearchHistory(ctx, historyQuery)
	if err != nil {
		d.log.Warn("failed to search browser history", "err", err)
		items = nil
	}
	return prompt.BuildTabHistory(p.Prompt, items)
}

func buildChatPrompt(_ *Dispatcher, _ context.Context, p Payload) string {
	if len(p.Messages) > 0 {
		return prompt.BuildTranscript(p.Messages)
	}
	return p.Prompt
}
