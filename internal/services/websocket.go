package services

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/freightflow/freightflow-backend/pkg/logger"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a WebSocket client
type Client struct {
	ID   uint
	Role string
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mutex      sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			logger.L.Info("websocket client connected", zap.Uint("userId", client.ID))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			logger.L.Info("websocket client disconnected", zap.Uint("userId", client.ID))

		case message := <-h.broadcast:
			// Slow clients get evicted, so this path mutates the map and
			// needs the write lock.
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastToUser sends a message to a specific user
func (h *Hub) BroadcastToUser(userID uint, message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		if client.ID == userID {
			select {
			case client.Send <- message:
			default:
				close(client.Send)
				delete(h.clients, client)
			}
		}
	}
}

// BroadcastToRole sends a message to all users holding a specific role
func (h *Hub) BroadcastToRole(role string, message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		if client.Role == role {
			select {
			case client.Send <- message:
			default:
				close(client.Send)
				delete(h.clients, client)
			}
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// WebSocket message types
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// LoadStatusUpdate is pushed when a load changes status, whether by an
// explicit mutation or a geofence-triggered transition.
type LoadStatusUpdate struct {
	LoadID         uint   `json:"loadId"`
	PreviousStatus string `json:"previousStatus"`
	Status         string `json:"status"`
	Trigger        string `json:"trigger"` // manual, bid_accepted, geofence
}

// DriverPositionUpdate is pushed when a driver reports a new position.
type DriverPositionUpdate struct {
	DriverID uint     `json:"driverId"`
	LoadID   *uint    `json:"loadId,omitempty"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// SendLoadStatusUpdate broadcasts a load status update to interested users.
func (h *Hub) SendLoadStatusUpdate(userIDs []uint, update LoadStatusUpdate) {
	message, err := json.Marshal(WebSocketMessage{Type: "load_status_update", Data: update})
	if err != nil {
		logger.L.Error("failed to marshal load status update", zap.Error(err))
		return
	}
	for _, id := range userIDs {
		h.BroadcastToUser(id, message)
	}
}

// SendDriverPositionUpdate broadcasts a driver position update.
func (h *Hub) SendDriverPositionUpdate(update DriverPositionUpdate) {
	message, err := json.Marshal(WebSocketMessage{Type: "driver_position_update", Data: update})
	if err != nil {
		logger.L.Error("failed to marshal driver position update", zap.Error(err))
		return
	}
	h.broadcast <- message
}

// HandleWebSocket handles WebSocket connections
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, role string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:   userID,
		Role: role,
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  hub,
	}

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L.Warn("websocket read error", zap.Error(err))
			}
			break
		}

		// Clients only push keepalives; everything stateful goes through
		// the HTTP API.
		var wsMessage WebSocketMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			logger.L.Warn("websocket message unmarshal failed", zap.Error(err))
			continue
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
