package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message is one turn of a chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryItem is a browser history entry as returned by the browser host.
type HistoryItem struct {
	ID            string  `json:"id,omitempty"`
	URL           string  `json:"url"`
	Title         string  `json:"title,omitempty"`
	LastVisitTime float64 `json:"lastVisitTime,omitempty"`
	VisitCount    int     `json:"visitCount,omitempty"`
}

// Build combines a question with page text. Neither input is validated; an
// empty context still yields a well-formed instruction.
func Build(question, context string) string {
	return fmt.Sprintf("answer this question: %s, with this data: %s", question, context)
}

// BuildTabHistory asks question about recently visited pages.
func BuildTabHistory(question string, items []HistoryItem) string {
	if items == nil {
		items = []HistoryItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		data = []byte("[]")
	}
	return fmt.Sprintf("Use the following data of recently used tabs : %s to answer the following prompt: %s.", data, question)
}

// BuildTranscript flattens a chat into one prompt, one "role: content" line per turn.
func BuildTranscript(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		role := m.Role
		if role == "" {
			role = "user"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(content)
	}
	return b.String()
}

// Truncate limits s to at most max characters (runes, not bytes).
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
