// Package engine drives the browser's on-device inference engine: the
// lifecycle guard that creates it at most once per browser session, the host
// transport, and the versioned parsing of its output.
package engine

import (
	"context"
	"encoding/json"
)

// Defaults used when engine metadata is missing from storage.
const (
	DefaultTaskName = "summarization"
	DefaultModelHub = "huggingface"
	DefaultModelID  = "Xenova/distilbart-cnn-6-6"
	DefaultBackend  = "onnx"
)

// Metadata selects the model the engine is created with.
type Metadata struct {
	TaskName string `json:"taskName"`
	ModelHub string `json:"modelHub"`
	ModelID  string `json:"modelId"`
	Backend  string `json:"backend,omitempty"`
}

// WithDefaults fills every empty field with its default.
func (m Metadata) WithDefaults() Metadata {
	if m.TaskName == "" {
		m.TaskName = DefaultTaskName
	}
	if m.ModelHub == "" {
		m.ModelHub = DefaultModelHub
	}
	if m.ModelID == "" {
		m.ModelID = DefaultModelID
	}
	if m.Backend == "" {
		m.Backend = DefaultBackend
	}
	return m
}

// RunRequest is passed verbatim to the engine's run call.
type RunRequest struct {
	Args    []any          `json:"args"`
	Options map[string]any `json:"options,omitempty"`
}

// Host is the browser-side engine API. Only one engine may exist per
// extension; creating a second one is up to the host to tolerate or reject.
type Host interface {
	CreateEngine(ctx context.Context, meta Metadata) error
	RunEngine(ctx context.Context, req RunRequest) (json.RawMessage, error)
}
