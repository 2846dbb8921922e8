package engine

import (
	"context"
	"encoding/json"

	"extension-hub/internal/hostrpc"
)

// Host method names, relative to hostrpc.SubjectPrefix.
const (
	MethodCreate = "ml.createEngine"
	MethodRun    = "ml.runEngine"
)

// NewNATS constructs a Host backed by the extension's trial ML API over NATS.
func NewNATS(client *hostrpc.Client) Host {
	return &natsHost{client: client}
}

type natsHost struct {
	client *hostrpc.Client
}

func (h *natsHost) CreateEngine(ctx context.Context, meta Metadata) error {
	return h.client.Call(ctx, MethodCreate, meta, nil)
}

func (h *natsHost) RunEngine(ctx context.Context, req RunRequest) (json.RawMessage, error) {
	var out json.RawMessage
	if err := h.client.Call(ctx, MethodRun, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
