package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"

	"extension-hub/internal/prompt"
)

// Inbound request kinds.
const (
	KindPageQA        = "page_qa"
	KindAnalyzePage   = "analyze_page"
	KindPageSummarize = "page_summarize"
	KindTabSummarize  = "tab_summarize"
	KindChatMessage   = "chat_message"
)

// Outbound result kinds.
const (
	KindAIResult            = "ai_result"
	KindPageSummarizeResult = "page_summarize_result"
	KindTabSummarizeResult  = "tab_summarize_result"
	KindChatMessageResult   = "chat_message_result"
)

// Envelope is a message sent by the UI. Older UIs name the kind "kind"
// instead of "type"; both are accepted.
type Envelope struct {
	Type string          `json:"type,omitempty"`
	Kind string          `json:"kind,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MessageKind returns the request kind carried by the envelope.
func (e Envelope) MessageKind() string {
	if e.Type != "" {
		return e.Type
	}
	return e.Kind
}

// Payload is the data of a request. Page text arrives as textContent from
// the sidebar and as fullText from the content script.
type Payload struct {
	Prompt      string           `json:"prompt"`
	TextContent string           `json:"textContent,omitempty"`
	FullText    string           `json:"fullText,omitempty"`
	URL         string           `json:"url,omitempty"`
	SiteName    string           `json:"siteName,omitempty"`
	Messages    []prompt.Message `json:"messages,omitempty"`
}

// PageText returns whichever page text field is set.
func (p Payload) PageText() string {
	if p.TextContent != "" {
		return p.TextContent
	}
	return p.FullText
}

// Outbound is the single reply to an inbound request.
type Outbound struct {
	Type     string `json:"type"`
	Result   string `json:"result"`
	Prompt   string `json:"prompt,omitempty"`
	URL      string `json:"url,omitempty"`
	SiteName string `json:"siteName,omitempty"`
}

// decodePayload accepts an object payload or, for chat, a bare array of
// messages.
func decodePayload(raw json.RawMessage) (Payload, error) {
	var p Payload
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return p, nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &p.Messages); err != nil {
			return Payload{}, fmt.Errorf("failed to decode messages: %w", err)
		}
		return p, nil
	}
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Payload{}, fmt.Errorf("failed to decode payload: %w", err)
	}
	return p, nil
}
