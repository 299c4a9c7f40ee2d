package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"esgpulse/internal/infrastructure"
	"esgpulse/pkg/contracts"
	"esgpulse/pkg/contracts/events"
)

// broadcastBuffer bounds queued broadcasts. Broadcasts beyond it are dropped
// so publishers never block on slow clients.
const broadcastBuffer = 256

// ConnRecorder observes hub activity, typically for metrics.
type ConnRecorder interface {
	ClientConnected(ctx context.Context)
	ClientDisconnected(ctx context.Context, connected time.Duration)
	MessageDropped(ctx context.Context)
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients. Only the Run loop mutates the map.
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu       sync.RWMutex
	logger   *slog.Logger
	recorder ConnRecorder

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64

	quit     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger, recorder ConnRecorder) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		recorder:   recorder,
		quit:       make(chan struct{}),
	}
}

// Start runs the hub loop in a goroutine. It is idempotent.
func (h *Hub) Start() {
	if h.running.CompareAndSwap(false, true) {
		go h.Run()
	}
}

// Run is the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.totalConnections.Add(1)

			ctx := client.context()
			if h.recorder != nil {
				h.recorder.ClientConnected(ctx)
			}
			h.logger.InfoContext(ctx, "client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.sendTo(client, events.MessageTypeConnect, events.ConnectData{
				ClientID: client.id,
				Status:   "connected",
				Version:  contracts.Version,
			})

		case client := <-h.unregister:
			h.remove(client, "client disconnected")

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.send <- message:
					h.messagesSent.Add(1)
				default:
					h.remove(client, "client send buffer full, disconnecting")
				}
			}
		}
	}
}

// remove drops client and closes its send channel. Called from Run only.
func (h *Hub) remove(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	if h.recorder != nil {
		h.recorder.ClientDisconnected(ctx, time.Since(client.connectedAt))
	}
	h.logger.InfoContext(ctx, reason,
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) sendTo(client *Client, msgType events.MessageType, data interface{}) {
	payload, err := encode(msgType, data, client.traceID)
	if err != nil {
		h.logger.Error("failed to encode message", slog.String("error", err.Error()))
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("client send buffer full", slog.String("client_id", client.id))
	}
}

func encode(msgType events.MessageType, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(events.Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
	})
}

// Broadcast queues a message for every connected client. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Broadcast(msgType events.MessageType, data interface{}) {
	payload, err := encode(msgType, data, "")
	if err != nil {
		h.logger.Error("failed to encode broadcast",
			slog.String("type", string(msgType)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.messagesDropped.Add(1)
		if h.recorder != nil {
			h.recorder.MessageDropped(context.Background())
		}
		h.logger.Warn("broadcast queue full, message dropped", slog.String("type", string(msgType)))
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub and closes every client. It is idempotent.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.running.Store(false)
		close(h.quit)
	})
}

// HubMetrics returns current hub counters
func (h *Hub) HubMetrics() map[string]int64 {
	return map[string]int64{
		"active_clients":    int64(h.ClientCount()),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"messages_dropped":  h.messagesDropped.Load(),
	}
}
