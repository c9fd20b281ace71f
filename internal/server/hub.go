package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/mdpreview/internal/bridge"
	"github.com/conneroisu/mdpreview/internal/errors"
	"github.com/conneroisu/mdpreview/internal/logging"
	"github.com/conneroisu/mdpreview/internal/patch"
	"github.com/conneroisu/mdpreview/internal/views"
	"github.com/google/uuid"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Pages only send scroll reports.
	maxMessageSize = 1024

	sendBuffer = 256
)

// Client is one connected preview page.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans bridge messages out to every connected page and collects their
// scroll reports.
type Hub struct {
	clients    map[*Client]bool
	mu         sync.RWMutex
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	surface *SurfaceTarget
	logger  logging.Logger

	// welcome returns the messages a newly registered page needs to catch up.
	welcome func() []bridge.Message

	diagMu     sync.Mutex
	diagnostic *bridge.Message
}

// NewHub creates a hub. Run must be started before messages are delivered.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.WithComponent("hub"),
	}
	h.surface = NewSurfaceTarget(h)
	return h
}

// Surface returns the patch target backed by the connected pages.
func (h *Hub) Surface() *SurfaceTarget {
	return h.surface
}

// Clients returns the number of connected pages.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish implements bridge.Publisher.
func (h *Hub) Publish(ctx context.Context, msg bridge.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInternalError, "failed to encode preview message", err)
	}

	if msg.Type == bridge.MessageMount || msg.Type == bridge.MessageUpdate {
		h.diagMu.Lock()
		h.diagnostic = nil
		h.diagMu.Unlock()
	}

	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return errors.NewMountError(errors.ErrCodeBridgeUnavailable, nil).
			WithContext("reason", "hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShowDiagnostic implements mount.Diagnostics. The panel is also replayed to
// pages that connect before the next successful mount.
func (h *Hub) ShowDiagnostic(ctx context.Context, err error) {
	markup, rerr := views.RenderString(ctx, views.Diagnostic("Preview unavailable", err))
	if rerr != nil {
		h.logger.Error(ctx, rerr, "Failed to render diagnostic panel")
		return
	}

	msg := bridge.Message{Type: bridge.MessageDiagnostic, Markup: markup}
	if err != nil {
		msg.Error = err.Error()
	}

	h.diagMu.Lock()
	h.diagnostic = &msg
	h.diagMu.Unlock()

	if perr := h.Publish(ctx, msg); perr != nil {
		h.logger.Warn(ctx, perr, "Failed to publish diagnostic")
	}
}

func (h *Hub) pending() []bridge.Message {
	var msgs []bridge.Message
	if h.welcome != nil {
		msgs = h.welcome()
	}
	if len(msgs) == 0 {
		h.diagMu.Lock()
		if h.diagnostic != nil {
			msgs = append(msgs, *h.diagnostic)
		}
		h.diagMu.Unlock()
	}
	return msgs
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-h.done:
			return

		case client := <-h.register:
			if client == nil || client.conn == nil {
				continue
			}
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			for _, msg := range h.pending() {
				if data, err := json.Marshal(msg); err == nil {
					select {
					case client.send <- data:
					default:
					}
				}
			}
			h.logger.Info(ctx, "Client connected", "client", client.id, "total", count)

		case client := <-h.unregister:
			if client == nil {
				continue
			}
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info(ctx, "Client disconnected", "client", client.id, "total", count)

		case message := <-h.broadcast:
			h.mu.RLock()
			var failed []*Client
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, mark for removal
					failed = append(failed, client)
				}
			}
			h.mu.RUnlock()

			if len(failed) > 0 {
				h.mu.Lock()
				for _, client := range failed {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
						h.logger.Warn(ctx, nil, "Dropped slow client", "client", client.id)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		for client := range h.clients {
			close(client.send)
		}
		h.clients = make(map[*Client]bool)
		h.mu.Unlock()
	})
}

// serve upgrades the request and runs the client pumps. It blocks until the
// connection closes.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request) (*Client, error) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin is checked by the server before the upgrade.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, err
	}

	client := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return nil, errors.NewMountError(errors.ErrCodeBridgeUnavailable, nil)
	}

	go client.writePump()
	return client, nil
}

// readPump consumes scroll reports until the connection closes.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		readCtx, cancel := context.WithTimeout(ctx, pongWait)
		_, data, err := c.conn.Read(readCtx)
		cancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				c.hub.logger.Debug(ctx, "WebSocket read ended", "client", c.id, "error", err.Error())
			}
			return
		}

		var msg bridge.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debug(ctx, "Ignoring malformed client message", "client", c.id)
			continue
		}
		if msg.Type == bridge.MessageScroll {
			c.hub.surface.Report(patch.Viewport{
				ScrollTop:    msg.ScrollTop,
				ScrollHeight: msg.ScrollHeight,
				ClientHeight: msg.ClientHeight,
			})
		}
	}
}

// writePump delivers queued messages and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := context.Background()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.hub.logger.Debug(ctx, "WebSocket write failed", "client", c.id, "error", err.Error())
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
