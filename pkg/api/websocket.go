package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperswap/pkg/exchange"
	"github.com/uhyunpark/hyperswap/pkg/transfer"
)

// Channels a client can subscribe to. Maker channels are "maker:" plus the
// lowercase hex address and carry both matches and cancels for that maker.
const (
	ChannelMatches = "matches"
	ChannelCancels = "cancels"
	makerPrefix    = "maker:"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (CORS handled by main server)
		return true
	},
}

// MakerChannel returns the channel name for a maker address
func MakerChannel(hexAddr string) string {
	return makerPrefix + strings.ToLower(hexAddr)
}

func normalizeChannel(ch string) string {
	if strings.HasPrefix(strings.ToLower(ch), makerPrefix) {
		return strings.ToLower(ch)
	}
	return ch
}

// Hub maintains active WebSocket connections and fans exchange events out
// to subscribed clients. It implements exchange.EventSink.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe access
	mu sync.RWMutex

	// Closed when Run returns
	done chan struct{}

	Logger *zap.SugaredLogger
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		Logger:     zap.NewNop().Sugar(),
	}
}

// Run starts the hub's main loop; it disconnects every client when ctx ends
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.Logger.Debugw("ws_connected", "client", client.id, "total", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.Logger.Debugw("ws_disconnected", "client", client.id, "total", n)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			close(h.done)
			return
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToChannels sends one message to every client subscribed to any
// of channels. Clients with a full buffer miss the message.
func (h *Hub) BroadcastToChannels(data interface{}, channels ...string) {
	message, err := json.Marshal(data)
	if err != nil {
		h.Logger.Warnw("ws_marshal_failed", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.IsSubscribedAny(channels) {
			continue
		}
		select {
		case client.send <- message:
		default:
			h.Logger.Warnw("ws_client_lagging", "client", client.id)
		}
	}
}

// sendTo queues message for one client if it is still registered
func (h *Hub) sendTo(c *Client, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- message:
	default:
	}
}

// OnMatch implements exchange.EventSink
func (h *Hub) OnMatch(ev exchange.MatchEvent, transfers []transfer.Record) {
	h.BroadcastToChannels(MatchUpdate{
		Type:         "match",
		LeftHash:     ev.LeftHash.Hex(),
		RightHash:    ev.RightHash.Hex(),
		LeftMaker:    ev.LeftMaker.Hex(),
		RightMaker:   ev.RightMaker.Hex(),
		NewLeftFill:  ev.NewLeftFill.Dec(),
		NewRightFill: ev.NewRightFill.Dec(),
		Transfers:    transfersJSON(transfers),
	}, ChannelMatches, MakerChannel(ev.LeftMaker.Hex()), MakerChannel(ev.RightMaker.Hex()))
}

// OnCancel implements exchange.EventSink
func (h *Hub) OnCancel(ev exchange.CancelEvent) {
	h.BroadcastToChannels(CancelUpdate{
		Type:  "cancel",
		Hash:  ev.Hash.Hex(),
		Maker: ev.Maker.Hex(),
	}, ChannelCancels, MakerChannel(ev.Maker.Hex()))
}

var _ exchange.EventSink = (*Hub)(nil)

// Client represents a WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	// Subscribed channels
	subscriptions map[string]bool
	subsMu        sync.RWMutex
}

// IsSubscribedAny checks if client is subscribed to any of channels
func (c *Client) IsSubscribedAny(channels []string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, ch := range channels {
		if c.subscriptions[ch] {
			return true
		}
	}
	return false
}

// Subscribe adds a channel subscription
func (c *Client) Subscribe(channel string) {
	c.subsMu.Lock()
	c.subscriptions[normalizeChannel(channel)] = true
	c.subsMu.Unlock()
}

// Unsubscribe removes a channel subscription
func (c *Client) Unsubscribe(channel string) {
	c.subsMu.Lock()
	delete(c.subscriptions, normalizeChannel(channel))
	c.subsMu.Unlock()
}

func (c *Client) ack(op string, channels []string) {
	msg, err := json.Marshal(WSAck{Type: op, Channels: channels})
	if err != nil {
		return
	}
	c.hub.sendTo(c, msg)
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Debugw("ws_read_failed", "client", c.id, "err", err)
			}
			break
		}

		// Handle subscription requests
		var req WSSubscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.hub.Logger.Debugw("ws_invalid_message", "client", c.id, "err", err)
			continue
		}

		switch req.Op {
		case "subscribe":
			for _, channel := range req.Channels {
				c.Subscribe(channel)
			}
			c.ack("subscribed", req.Channels)
		case "unsubscribe":
			for _, channel := range req.Channels {
				c.Unsubscribe(channel)
			}
			c.ack("unsubscribed", req.Channels)
		default:
			c.hub.Logger.Debugw("ws_unknown_op", "client", c.id, "op", req.Op)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
// One frame carries one JSON message.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocket handles WebSocket upgrade and client lifecycle
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Debugw("ws_upgrade_failed", "err", err)
		return
	}

	client := &Client{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		id:            conn.RemoteAddr().String(),
		subscriptions: make(map[string]bool),
	}

	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		conn.Close()
		return
	}

	// Start read and write pumps in separate goroutines
	go client.writePump()
	go client.readPump()
}
