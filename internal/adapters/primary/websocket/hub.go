package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// Config holds the per-connection limits applied by the hub.
type Config struct {
	SendBufferSize int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	WelcomeMessage string
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		SendBufferSize: 256,
		MaxMessageSize: 4096,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		WelcomeMessage: "Connected to comments stream",
	}
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	cfg     Config
	logger  *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

func NewHub(cfg Config, logger *slog.Logger) *Hub {
	defaults := DefaultConfig()
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaults.SendBufferSize
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaults.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaults.PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = (cfg.PongWait * 9) / 10
	}
	if cfg.WelcomeMessage == "" {
		cfg.WelcomeMessage = defaults.WelcomeMessage
	}

	return &Hub{
		clients: make(map[*Client]struct{}),
		cfg:     cfg,
		logger:  logger.With("component", "websocket_hub"),
	}
}

// Serve takes ownership of an upgraded connection. The welcome frame is
// queued before the client is marked open, so it is always the first
// frame the peer receives.
func (h *Hub) Serve(conn *websocket.Conn) *Client {
	client := newClient(h, conn)

	welcome, err := domain.EncodeBroadcast(domain.WelcomeEvent{Message: h.cfg.WelcomeMessage})
	if err != nil {
		h.logger.Error("failed to encode welcome", "error", err)
		_ = conn.Close()
		return client
	}
	client.send <- welcome

	client.setState(StateOpen)
	h.register(client)

	go client.WritePump()
	go client.ReadPump()

	return client
}

// Broadcast serializes the event once and queues it on every open client.
// Clients whose send buffer is full are dropped; the loop always completes.
func (h *Hub) Broadcast(event domain.BroadcastEvent) error {
	payload, err := domain.EncodeBroadcast(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range targets {
		if client.State() != StateOpen {
			continue
		}
		if client.enqueue(payload) {
			delivered++
			continue
		}
		h.logger.Warn("client send buffer full, dropping connection", "client_id", client.ID)
		h.unregister(client)
	}

	h.logger.Debug("broadcast queued",
		"type", event.Type(),
		"recipients", delivered,
	)
	return nil
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for client := range clients {
		client.close()
	}
	h.logger.Info("websocket hub closed", "clients", len(clients))
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client registered", "client_id", client.ID, "clients", count)
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()

	client.close()
	if ok {
		h.logger.Info("client unregistered", "client_id", client.ID, "clients", count)
	}
}
