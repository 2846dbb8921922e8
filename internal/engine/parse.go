package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnexpectedShape is returned when engine output matches no known schema.
var ErrUnexpectedShape = errors.New("engine: unexpected response shape")

// Schema identifies the engine output format a response was parsed with.
// Each schema is a contract with a specific engine version; when the engine
// changes its output, add a schema rather than loosening an existing one.
type Schema string

const (
	// [{"generated_text":[system, user, assistant]}] from text-generation chat pipelines
	SchemaChatPipelineV1 Schema = "chat-pipeline-v1"
	// [{"summary_text":"..."}] from summarization pipelines
	SchemaSummarizationV1 Schema = "summarization-v1"
	// {"finalOutput":"..."} from the wllama backend
	SchemaWllamaV1 Schema = "wllama-v1"
)

// chatReplyIndex is the position of the assistant turn in generated_text:
// the engine echoes the system and user turns first.
const chatReplyIndex = 2

const emptyThinkBlock = "<think>\n\n</think>\n\n"

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type pipelineOutput struct {
	GeneratedText json.RawMessage `json:"generated_text"`
	SummaryText   *string         `json:"summary_text"`
}

type wllamaOutput struct {
	FinalOutput *string `json:"finalOutput"`
}

// ParseOutput extracts the answer text from raw engine output.
func ParseOutput(raw json.RawMessage) (string, Schema, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", "", fmt.Errorf("%w: empty output", ErrUnexpectedShape)
	}

	switch trimmed[0] {
	case '{':
		var out wllamaOutput
		if err := json.Unmarshal(trimmed, &out); err != nil || out.FinalOutput == nil {
			return "", "", fmt.Errorf("%w: object without finalOutput", ErrUnexpectedShape)
		}
		return strings.TrimSpace(strings.Replace(*out.FinalOutput, emptyThinkBlock, "", 1)), SchemaWllamaV1, nil
	case '[':
		return parsePipeline(trimmed)
	default:
		return "", "", fmt.Errorf("%w: %.40s", ErrUnexpectedShape, trimmed)
	}
}

func parsePipeline(raw []byte) (string, Schema, error) {
	var outputs []pipelineOutput
	if err := json.Unmarshal(raw, &outputs); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if len(outputs) == 0 {
		return "", "", fmt.Errorf("%w: no outputs", ErrUnexpectedShape)
	}
	first := outputs[0]

	if first.SummaryText != nil {
		return strings.TrimSpace(*first.SummaryText), SchemaSummarizationV1, nil
	}
	if len(first.GeneratedText) == 0 {
		return "", "", fmt.Errorf("%w: missing generated_text", ErrUnexpectedShape)
	}

	var turns []chatTurn
	if err := json.Unmarshal(first.GeneratedText, &turns); err != nil {
		return "", "", fmt.Errorf("%w: generated_text is not a chat: %v", ErrUnexpectedShape, err)
	}
	if len(turns) <= chatReplyIndex {
		return "", "", fmt.Errorf("%w: generated_text has %d turns", ErrUnexpectedShape, len(turns))
	}
	reply := turns[chatReplyIndex]
	if reply.Role != "" && reply.Role != "assistant" {
		return "", "", fmt.Errorf("%w: turn %d has role %q", ErrUnexpectedShape, chatReplyIndex, reply.Role)
	}
	return strings.TrimSpace(reply.Content), SchemaChatPipelineV1, nil
}
