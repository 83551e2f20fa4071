package services

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/wayride/wayride-backend/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a WebSocket client subscribed to a set of topics.
// Subscriptions live exactly as long as the connection: joined on register,
// dropped on unregister, no explicit unsubscribe.
type Client struct {
	UserID uint
	Role   string
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub
	Topics []string

	// OnClose runs once when the client is unregistered (presence teardown)
	OnClose func()
}

// Hub maintains topic-scoped subscriber groups and fans events out to them.
// Delivery is best-effort and at-most-once: nobody queues for subscribers
// that are gone or backed up.
type Hub struct {
	topics     map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		topics:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			for _, topic := range client.Topics {
				if h.topics[topic] == nil {
					h.topics[topic] = make(map[*Client]bool)
				}
				h.topics[topic][client] = true
			}
			h.mutex.Unlock()
			observability.ConnectedClients.Inc()
			log.Printf("Client %d (%s) connected: topics %v", client.UserID, client.Role, client.Topics)

		case client := <-h.unregister:
			h.mutex.Lock()
			removed := false
			for _, topic := range client.Topics {
				if subs, ok := h.topics[topic]; ok && subs[client] {
					delete(subs, client)
					removed = true
					if len(subs) == 0 {
						delete(h.topics, topic)
					}
				}
			}
			h.mutex.Unlock()
			if removed {
				close(client.Send)
				observability.ConnectedClients.Dec()
				if client.OnClose != nil {
					client.OnClose()
				}
				log.Printf("Client %d (%s) disconnected", client.UserID, client.Role)
			}
		}
	}
}

// Publish sends a message to every live subscriber of a topic. Subscribers
// whose send buffer is full are skipped, not waited on.
func (h *Hub) Publish(topic string, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.topics[topic] {
		select {
		case client.Send <- message:
		default:
			log.Printf("Warning: dropping %s event for client %d (channel full)", topic, client.UserID)
		}
	}
}

// SubscriberCount returns the number of live subscribers on a topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.topics[topic])
}

// Register attaches a client to its topics
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister detaches a client from all of its topics
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// HandleWebSocket upgrades the request and pumps messages until the
// connection drops
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, role string, topics []string, onClose func()) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		UserID:  userID,
		Role:    role,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Hub:     hub,
		Topics:  topics,
		OnClose: onClose,
	}

	client.Hub.Register(client)

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

// readPump drains inbound frames so control messages are processed and the
// hub learns about disconnects
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
