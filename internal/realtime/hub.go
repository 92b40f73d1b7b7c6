package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vntrbirds-be/pkg/logger"
	"vntrbirds-be/pkg/metrics"
)

const writeWait = 10 * time.Second

// Stream names
const (
	StreamLeaderboard = "leaderboard"
	StreamSettings    = "settings"
)

// TeamStream is the stream name for one team's progress updates
func TeamStream(teamID string) string {
	return "team:" + teamID
}

// Message is the envelope written to websocket clients
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one websocket connection. Writes are serialized per connection.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewClient wraps an upgraded connection
func NewClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

// Send writes one message to the client
func (c *Client) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.write(data)
}

// Ping sends a keepalive control frame
func (c *Client) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks websocket clients by stream name
type Hub struct {
	mu      sync.RWMutex
	streams map[string]map[*Client]struct{}
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		streams: make(map[string]map[*Client]struct{}),
		logger:  log.Named("hub"),
		metrics: m,
	}
}

// Add registers a client on a stream
func (h *Hub) Add(stream string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streams[stream] == nil {
		h.streams[stream] = make(map[*Client]struct{})
	}
	h.streams[stream][c] = struct{}{}
	h.metrics.StreamClients(stream, 1)

	h.logger.Debug("Stream client connected",
		zap.String("stream", stream),
		zap.Int("clients", len(h.streams[stream])))
}

// Remove unregisters and closes a client
func (h *Hub) Remove(stream string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(stream, c)
}

func (h *Hub) removeLocked(stream string, c *Client) {
	clients, ok := h.streams[stream]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}

	delete(clients, c)
	_ = c.conn.Close()
	if len(clients) == 0 {
		delete(h.streams, stream)
	}
	h.metrics.StreamClients(stream, -1)

	h.logger.Debug("Stream client disconnected", zap.String("stream", stream))
}

// Count returns the number of clients on a stream
func (h *Hub) Count(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[stream])
}

// Total returns the number of clients across all streams
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clients := range h.streams {
		n += len(clients)
	}
	return n
}

// Broadcast sends msg to every client on stream, dropping clients that fail
func (h *Hub) Broadcast(stream string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal stream message",
			zap.String("stream", stream),
			zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.streams[stream]))
	for c := range h.streams[stream] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var failed []*Client
	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.logger.Debug("Stream write failed",
				zap.String("stream", stream),
				zap.Error(err))
			failed = append(failed, c)
		}
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, c := range failed {
			h.removeLocked(stream, c)
		}
		h.mu.Unlock()
	}
}

// CloseAll disconnects every client, used on shutdown
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for stream, clients := range h.streams {
		for c := range clients {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			h.removeLocked(stream, c)
		}
	}
}
