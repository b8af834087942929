package sse

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// EventItineraryUpdate is sent to a user after one of their itineraries is stored.
const EventItineraryUpdate = "itinerary_update"

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Debug("sse client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", len(h.clients)))
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Debug("sse client unregistered", zap.String("client_id", clientID), zap.Int("total", len(h.clients)))
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToUser 给特定用户发送事件（而非广播）
func (h *Hub) SendToUser(userID string, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Events <- event:
			sent++
		default:
			h.logger.Warn("sse client buffer full, skipping event", zap.String("client_id", client.ID))
		}
	}
	return sent
}

type itineraryUpdate struct {
	PartID      string `json:"part_id"`
	ItineraryID string `json:"itinerary_id"`
	Action      string `json:"action"`
}

// PublishItineraryUpdate 行程生成完成后通知零件所属用户
func (h *Hub) PublishItineraryUpdate(userID, partID, itineraryID, action string) {
	data, err := json.Marshal(itineraryUpdate{PartID: partID, ItineraryID: itineraryID, Action: action})
	if err != nil {
		h.logger.Error("encode itinerary update", zap.Error(err))
		return
	}
	n := h.SendToUser(userID, Event{EventType: EventItineraryUpdate, Data: string(data)})
	h.logger.Debug("published itinerary_update",
		zap.String("user_id", userID),
		zap.String("part_id", partID),
		zap.String("itinerary_id", itineraryID),
		zap.Int("clients", n))
}
