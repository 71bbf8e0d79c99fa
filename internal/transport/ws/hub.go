package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message. Game events use the
// service.Event* names; the hub adds its own presence events.
type MessageType string

const (
	MsgPlayerConnected    MessageType = "player_connected"
	MsgPlayerDisconnected MessageType = "player_disconnected"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections per game
type Hub struct {
	conns map[string]map[string]*Connection // gameID -> playerID -> conn

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection of one player
type Connection struct {
	GameID   string
	PlayerID string
	Send     chan []byte
	Hub      *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	GameID   string
	ToPlayer string // Empty means every player of the game
	Message  *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			players := h.conns[conn.GameID]
			if players == nil {
				players = make(map[string]*Connection)
				h.conns[conn.GameID] = players
			}
			// a reconnect replaces the older socket
			if old, ok := players[conn.PlayerID]; ok {
				close(old.Send)
			}
			players[conn.PlayerID] = conn
			log.Printf("Player %s connected to game %s", conn.PlayerID, conn.GameID)
			h.sendPresence(conn.GameID, conn.PlayerID, MsgPlayerConnected)
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if players, ok := h.conns[conn.GameID]; ok {
				if existing, ok := players[conn.PlayerID]; ok && existing == conn {
					delete(players, conn.PlayerID)
					close(conn.Send)
					log.Printf("Player %s disconnected from game %s", conn.PlayerID, conn.GameID)
					h.sendPresence(conn.GameID, conn.PlayerID, MsgPlayerDisconnected)
				}
				if len(players) == 0 {
					delete(h.conns, conn.GameID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)

			if players, ok := h.conns[msg.GameID]; ok {
				if msg.ToPlayer != "" {
					if conn, ok := players[msg.ToPlayer]; ok {
						deliver(conn, data)
					}
				} else {
					for _, conn := range players {
						deliver(conn, data)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// deliver drops the message if the connection's buffer is full
func deliver(conn *Connection, data []byte) {
	select {
	case conn.Send <- data:
	default:
	}
}

// sendPresence must be called with h.mu held
func (h *Hub) sendPresence(gameID, playerID string, msgType MessageType) {
	payload, _ := json.Marshal(map[string]string{"playerId": playerID})
	data, _ := json.Marshal(&Message{Type: msgType, Payload: payload})
	for id, conn := range h.conns[gameID] {
		if id != playerID {
			deliver(conn, data)
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// ConnectionCount returns how many players of a game are connected
func (h *Hub) ConnectionCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[gameID])
}

// BroadcastToGame sends a message to every connected player of a game (implements service.Broadcaster)
func (h *Hub) BroadcastToGame(gameID string, msgType string, payload interface{}) {
	h.enqueue(gameID, "", msgType, payload)
}

// BroadcastToPlayer sends a message to a specific player (implements service.Broadcaster)
func (h *Hub) BroadcastToPlayer(gameID, playerID string, msgType string, payload interface{}) {
	h.enqueue(gameID, playerID, msgType, payload)
}

func (h *Hub) enqueue(gameID, playerID, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Warning: failed to encode %s for game %s: %v", msgType, gameID, err)
		return
	}
	h.broadcast <- &BroadcastMessage{
		GameID:   gameID,
		ToPlayer: playerID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}
