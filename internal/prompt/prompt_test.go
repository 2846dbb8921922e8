package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildContainsQuestionThenContext(t *testing.T) {
	tests := []struct {
		name     string
		question string
		context  string
	}{
		{"plain", "What is Go?", "Go is a programming language."},
		{"empty context", "Summarize", ""},
		{"empty question", "", "Lorem ipsum"},
		{"unicode", "¿Qué es esto?", "日本語のテキスト"},
		{"template-like input", "with this data: x", "answer this question: y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.question, tt.context)
			qi := strings.Index(got, tt.question)
			ci := strings.LastIndex(got, tt.context)
			if qi < 0 {
				t.Fatalf("prompt %q does not contain question %q", got, tt.question)
			}
			if ci < 0 {
				t.Fatalf("prompt %q does not contain context %q", got, tt.context)
			}
			if tt.question != "" && tt.context != "" && qi > ci {
				t.Errorf("expected question before context in %q", got)
			}
		})
	}
}

func TestBuildTemplate(t *testing.T) {
	got := Build("Summarize", "Lorem ipsum...")
	want := "answer this question: Summarize, with this data: Lorem ipsum..."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildTabHistory(t *testing.T) {
	got := BuildTabHistory("what did I read?", []HistoryItem{{URL: "https://go.dev", Title: "Go"}})
	if !strings.Contains(got, `"url":"https://go.dev"`) {
		t.Errorf("expected serialized history in %q", got)
	}
	if !strings.HasSuffix(got, "to answer the following prompt: what did I read?.") {
		t.Errorf("unexpected suffix in %q", got)
	}

	empty := BuildTabHistory("anything", nil)
	if !strings.Contains(empty, "tabs : [] to answer") {
		t.Errorf("expected empty JSON array for nil history, got %q", empty)
	}
}

func TestBuildTranscript(t *testing.T) {
	got := BuildTranscript([]Message{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "  "},
		{Content: "Tell me more"},
	})
	want := "system: You are a helpful assistant.\nuser: Hi\nuser: Tell me more"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"shorter than max", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"cut", "abcdef", 3, "abc"},
		{"runes not bytes", "ééééé", 2, "éé"},
		{"zero", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}

	long := strings.Repeat("x", 2500)
	if n := utf8.RuneCountInString(Truncate(long, 2000)); n != 2000 {
		t.Errorf("expected 2000 characters, got %d", n)
	}
}
