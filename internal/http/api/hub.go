package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

const (
	ChannelExecutions = "executions"
	ChannelWarnings   = "warnings"
	ChannelEndpoints  = "endpoints"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendBufferSize = 256
)

var knownChannels = map[string]bool{
	ChannelExecutions: true,
	ChannelWarnings:   true,
	ChannelEndpoints:  true,
}

type envelope struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

type subscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

// Hub fans events out to websocket clients by channel. Slow clients whose
// buffer is full are disconnected rather than blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool

	upgrader websocket.Upgrader
}

func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()

	h.mu.Lock()
	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	return nil
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) Publish(_ context.Context, execution models.Execution) error {
	h.broadcast(ChannelExecutions, toExecutionResponse(execution))
	return nil
}

func (h *Hub) Add(warning models.Warning) {
	h.broadcast(ChannelWarnings, toWarningResponse(warning))
}

// EndpointChanged matches endpoint.Listener.
func (h *Hub) EndpointChanged(endpoint models.Endpoint, current bool) {
	h.broadcast(ChannelEndpoints, toEndpointResponse(endpoint, current))
}

func (h *Hub) broadcast(channel string, data any) {
	message, err := json.Marshal(envelope{Channel: channel, Data: data})
	if err != nil {
		logger.Error(context.Background(), "failed to marshal websocket event",
			zap.String("channel", channel),
			zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.subscribed(channel) {
			continue
		}

		select {
		case client.send <- message:
		default:
			delete(h.clients, client)
			close(client.send)
			logger.Warn(context.Background(), "websocket client too slow, disconnected",
				zap.String("client_id", client.id))
		}
	}
}

func (h *Hub) register(client *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[client] = struct{}{}

	return true
}

func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// ServeHTTP upgrades the connection. Clients start subscribed to the
// channels listed in ?channels=, or to all of them, and may change that by
// sending {"op":"subscribe"|"unsubscribe","channels":[...]}.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(ctx, "websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, sendBufferSize),
		id:            uuid.NewString(),
		subscriptions: initialSubscriptions(r.URL.Query().Get("channels")),
	}

	if !h.register(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	logger.Debug(ctx, "websocket client connected", zap.String("client_id", client.id))

	go client.writePump()
	go client.readPump()
}

func initialSubscriptions(query string) map[string]bool {
	subscriptions := make(map[string]bool)
	for _, channel := range strings.Split(query, ",") {
		channel = strings.TrimSpace(channel)
		if knownChannels[channel] {
			subscriptions[channel] = true
		}
	}

	if len(subscriptions) == 0 {
		for channel := range knownChannels {
			subscriptions[channel] = true
		}
	}

	return subscriptions
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	subsMu        sync.RWMutex
	subscriptions map[string]bool
}

func (c *wsClient) subscribed(channel string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()

	return c.subscriptions[channel]
}

func (c *wsClient) apply(request subscribeRequest) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	for _, channel := range request.Channels {
		if !knownChannels[channel] {
			continue
		}

		switch request.Op {
		case "subscribe":
			c.subscriptions[channel] = true
		case "unsubscribe":
			delete(c.subscriptions, channel)
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug(context.Background(), "websocket read failed",
					zap.String("client_id", c.id),
					zap.Error(err))
			}
			return
		}

		var request subscribeRequest
		if err := json.Unmarshal(message, &request); err != nil {
			logger.Debug(context.Background(), "invalid websocket message",
				zap.String("client_id", c.id),
				zap.Error(err))
			continue
		}
		c.apply(request)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
