package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout   = 10 * time.Second
	inboundBacklog = 64
)

var upgrader = websocket.Upgrader{
	// Extension pages connect from moz-extension:// and chrome-extension:// origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WebSocket is a bus for UIs connected directly to the hub. Replies are
// broadcast to every connected client, the way extension runtime messages
// reach every open extension page.
type WebSocket struct {
	log     *slog.Logger
	inbound chan []byte

	mu      sync.RWMutex
	clients map[uuid.UUID]*wsClient
	closed  bool

	wg sync.WaitGroup
}

func NewWebSocket(log *slog.Logger) *WebSocket {
	return &WebSocket{
		log:     log,
		inbound: make(chan []byte, inboundBacklog),
		clients: make(map[uuid.UUID]*wsClient),
	}
}

// ServeHTTP upgrades the request and reads messages from the client until
// it disconnects.
func (b *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("failed to upgrade connection", "err", err)
		return
	}

	client := &wsClient{id: uuid.New(), conn: conn}
	if !b.register(client) {
		_ = conn.Close()
		return
	}
	defer b.unregister(client)

	b.log.Info("ui connected", "client", client.id)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.log.Warn("websocket read failed", "client", client.id, "err", err)
			}
			return
		}
		select {
		case b.inbound <- data:
		case <-r.Context().Done():
			return
		}
	}
}

func (b *WebSocket) register(c *wsClient) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.clients[c.id] = c
	return true
}

func (b *WebSocket) unregister(c *wsClient) {
	b.mu.Lock()
	delete(b.clients, c.id)
	b.mu.Unlock()
	_ = c.conn.Close()
	b.log.Info("ui disconnected", "client", c.id)
}

// Clients reports how many UIs are connected.
func (b *WebSocket) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *WebSocket) Serve(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			b.wg.Wait()
			return nil
		case data := <-b.inbound:
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				reply, ok := handleSafely(ctx, b.log, h, data)
				if !ok {
					return
				}
				if err := b.Publish(ctx, reply); err != nil {
					b.log.Error("failed to publish result", "err", err)
				}
			}()
		}
	}
}

// Publish writes data to every client. Per-client failures are joined; a
// failing client is dropped on its next read.
func (b *WebSocket) Publish(_ context.Context, data []byte) error {
	b.mu.RLock()
	clients := make([]*wsClient, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	var errs []error
	for _, c := range clients {
		if err := c.write(data); err != nil {
			errs = append(errs, fmt.Errorf("client %s: %w", c.id, err))
		}
	}
	return errors.Join(errs...)
}

// Close disconnects every client and refuses new ones.
func (b *WebSocket) Close() error {
	b.mu.Lock()
	b.closed = true
	clients := b.clients
	b.clients = make(map[uuid.UUID]*wsClient)
	b.mu.Unlock()

	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		_ = c.conn.Close()
	}
	return nil
}
