package chatapi

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/birthdaybot/internal/observability"
)

// ErrNotConnected is returned when the target user has no live connection.
// Delivery is best-effort, so callers usually just log it.
var ErrNotConnected = errors.New("user not connected")

// OutboundMessage is the wire shape of every message pushed to a client.
type OutboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// InboundMessage is the wire shape of messages read from a client.
type InboundMessage struct {
	Text string `json:"text"`
}

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub tracks live websocket connections by user id and is the outbound
// Sender for the engine replies, the reminder scheduler and the error
// reporter. One connection per user; a new connection replaces the old one.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
		metrics: metrics,
	}
}

// Register attaches conn as the user's live connection and returns a
// function that detaches it again (unless already replaced).
func (h *Hub) Register(userID string, conn *websocket.Conn) func() {
	c := &client{conn: conn}
	h.mu.Lock()
	if old, ok := h.clients[userID]; ok {
		_ = old.conn.Close()
	}
	h.clients[userID] = c
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		if h.clients[userID] == c {
			delete(h.clients, userID)
		}
		h.mu.Unlock()
	}
}

func (h *Hub) Send(_ context.Context, userID, text string) error {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}

	if err := c.writeJSON(OutboundMessage{Type: "message", Text: text}); err != nil {
		h.logger.Warn("websocket write failed", zap.String("user_id", userID), zap.Error(err))
		if h.metrics != nil {
			h.metrics.SendFailures.Inc()
		}
		return err
	}
	if h.metrics != nil {
		h.metrics.WSMessages.WithLabelValues("outbound").Inc()
	}
	return nil
}

func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
