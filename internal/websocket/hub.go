package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"pricingcli/internal/infrastructure"
	"pricingcli/pkg/contracts/events"
)

// Message types pushed to viewers
const (
	TypeConnection          = string(events.MessageTypeConnection)
	TypeCalculationStarted  = string(events.MessageTypeCalculationStarted)
	TypeCalculationComplete = string(events.MessageTypeCalculationComplete)
	TypeCalculationFailed   = string(events.MessageTypeCalculationFailed)
)

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections int64
	messagesSent     int64

	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run is the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if data, err := encode(TypeConnection, events.Connected{
				Status:   "connected",
				ClientID: client.id,
			}, client.traceID); err == nil {
				select {
				case client.send <- data:
				default:
					h.logger.Warn("Failed to send connection message - client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()

				h.logger.InfoContext(client.context(), "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.Lock()
			failed := 0
			for client := range h.clients {
				select {
				case client.send <- message:
					h.messagesSent++
				default:
					failed++
					close(client.send)
					delete(h.clients, client)
				}
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Debug("Broadcast delivered",
				slog.Int("client_count", count),
				slog.Int("message_size", len(message)))
			if failed > 0 {
				h.logger.Warn("Clients dropped on full send buffer", slog.Int("fail_count", failed))
			}
		}
	}
}

// Broadcast sends a typed message to every client. It never blocks on a
// stopped hub.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	h.BroadcastWithTrace(context.Background(), messageType, data)
}

// BroadcastWithTrace is Broadcast carrying the trace ID found in ctx
func (h *Hub) BroadcastWithTrace(ctx context.Context, messageType string, data interface{}) {
	payload, err := encode(messageType, data, infrastructure.GetTraceID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", messageType))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetHubMetrics returns current hub counters
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Stop ends the hub loop and closes every client send channel
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func encode(messageType string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(events.NewMessage(events.MessageType(messageType), data, traceID))
}
