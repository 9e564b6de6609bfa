package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
)

// ClientMessage is the only thing clients may send: a keepalive.
type ClientMessage struct {
	Type string `json:"type"` // ping
}

// Client is one websocket session subscribed to a workspace's report events.
type Client struct {
	Hub           *Hub
	Conn          *Conn
	WorkspaceID   uint
	UserID        uint
	Send          chan []byte
	MessageCount  int       // messages received in the current second
	LastResetTime time.Time // 카운터 리셋 시각
	RateMu        sync.Mutex

	sendMu sync.Mutex
	closed bool
}

// trySend queues data without blocking. It reports false when the buffer is
// full or the session is already closed.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Hub fans report events out to every session of the affected workspace.
type Hub struct {
	// WorkspaceID -> sessions (several users and devices per workspace)
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage
	done       chan struct{}

	mu sync.RWMutex
}

type broadcastMessage struct {
	workspaceID uint
	data        []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *broadcastMessage, 1024),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for workspaceID, list := range h.clients {
				for _, client := range list {
					client.close()
				}
				delete(h.clients, workspaceID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.WorkspaceID] = append(h.clients[client.WorkspaceID], client)
			sessions := len(h.clients[client.WorkspaceID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"workspace_id":   client.WorkspaceID,
				"user_id":        client.UserID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients[message.workspaceID] {
				if !client.trySend(message.data) {
					// slow consumer, drop the session
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"workspace_id": message.workspaceID,
						"user_id":      client.UserID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.WorkspaceID]
	if !ok {
		return
	}
	remaining := make([]*Client, 0, len(list))
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		remaining = append(remaining, c)
	}
	if !found {
		return
	}
	if len(remaining) == 0 {
		delete(h.clients, client.WorkspaceID)
	} else {
		h.clients[client.WorkspaceID] = remaining
	}
	client.close()

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"workspace_id":       client.WorkspaceID,
		"user_id":            client.UserID,
		"remaining_sessions": len(remaining),
	})
}

// Stop ends Run and closes every session.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Publish queues event for the workspace's sessions. Events are dropped when
// the broadcast queue is full; clients refetch on reconnect.
func (h *Hub) Publish(event model.ReportEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal report event", err, map[string]interface{}{
			"workspace_id": event.WorkspaceID,
			"type":         event.Type,
		})
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{workspaceID: event.WorkspaceID, data: data}:
	default:
		logger.Warn("Broadcast channel full, event dropped", map[string]interface{}{
			"workspace_id": event.WorkspaceID,
			"type":         event.Type,
		})
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SessionCount returns the number of live sessions of a workspace.
func (h *Hub) SessionCount(workspaceID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[workspaceID])
}

// HandleClientMessage answers keepalive pings and ignores everything else.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"workspace_id": client.WorkspaceID,
			"user_id":      client.UserID,
			"count":        count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"workspace_id": client.WorkspaceID,
			"error":        err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		client.trySend([]byte(`{"type":"pong"}`))
	}
}
