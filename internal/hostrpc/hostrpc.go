// Package hostrpc calls browser-side host APIs (tabs, history, the ML engine)
// through NATS request/reply. The extension's background page subscribes to
// the "browser.>" subjects and answers with a reply envelope.
package hostrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is prepended to every host method.
const SubjectPrefix = "browser."

// Requester is the subset of *nats.Conn used for host calls.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// HostError is an error reported by the browser side.
type HostError struct {
	Method  string
	Message string
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host %s: %s", e.Method, e.Message)
}

type reply struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client issues host calls with a per-call timeout.
type Client struct {
	conn    Requester
	timeout time.Duration
}

// NewClient wraps a NATS connection. A zero timeout falls back to 60s because
// NATS requests need a deadline.
func NewClient(conn Requester, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{conn: conn, timeout: timeout}
}

// Call sends req to method and decodes the reply data into resp (which may be nil).
func (c *Client) Call(ctx context.Context, method string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("host %s: marshal request: %w", method, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.conn.RequestWithContext(reqCtx, SubjectPrefix+method, body)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return fmt.Errorf("host %s: no browser connected: %w", method, err)
		}
		return fmt.Errorf("host %s: request: %w", method, err)
	}

	var r reply
	if err := json.Unmarshal(msg.Data, &r); err != nil {
		return fmt.Errorf("host %s: decode reply: %w", method, err)
	}
	if !r.OK {
		return &HostError{Method: method, Message: r.Error}
	}
	if resp == nil || len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, resp); err != nil {
		return fmt.Errorf("host %s: decode data: %w", method, err)
	}
	return nil
}
