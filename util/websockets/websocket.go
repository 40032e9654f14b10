package websockets

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewWebSocketManager initializes a WebSocketManager. Call Run before serving clients.
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns registration until Close is called.
func (manager *WebSocketManager) Run() {
	for {
		select {
		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client] = true
			for _, room := range client.Rooms {
				if manager.rooms[room] == nil {
					manager.rooms[room] = make(map[*Client]bool)
				}
				manager.rooms[room][client] = true
			}
			manager.mu.Unlock()

		case client := <-manager.unregister:
			manager.mu.Lock()
			manager.remove(client)
			manager.mu.Unlock()

		case <-manager.done:
			manager.mu.Lock()
			for client := range manager.clients {
				manager.remove(client)
			}
			manager.mu.Unlock()
			return
		}
	}
}

// remove must be called with mu held.
func (manager *WebSocketManager) remove(client *Client) {
	if _, ok := manager.clients[client]; !ok {
		return
	}
	delete(manager.clients, client)
	for _, room := range client.Rooms {
		delete(manager.rooms[room], client)
		if len(manager.rooms[room]) == 0 {
			delete(manager.rooms, room)
		}
	}
	close(client.send)
}

func (manager *WebSocketManager) Close() {
	manager.closeOnce.Do(func() {
		close(manager.done)
	})
}

// BroadcastToRoom queues data for every client in room and returns how many
// clients received it. Clients whose buffer is full are disconnected.
func (manager *WebSocketManager) BroadcastToRoom(room string, data []byte) int {
	manager.mu.RLock()
	var (
		delivered int
		slow      []*Client
	)
	for client := range manager.rooms[room] {
		select {
		case client.send <- data:
			delivered++
		default:
			slow = append(slow, client)
		}
	}
	manager.mu.RUnlock()

	for _, client := range slow {
		select {
		case manager.unregister <- client:
		case <-manager.done:
		}
	}
	return delivered
}

// RoomSize returns the number of clients currently listening on room.
func (manager *WebSocketManager) RoomSize(room string) int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.rooms[room])
}

// ServeClient upgrades the request and subscribes the connection to rooms.
func (manager *WebSocketManager) ServeClient(w http.ResponseWriter, r *http.Request, userID string, rooms []string, logger logrus.FieldLogger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{Conn: conn, UserID: userID, Rooms: rooms, send: make(chan []byte, sendBufferSize)}
	ack, _ := json.Marshal(Message{Type: MsgTypeSubscribed, Rooms: rooms})
	client.send <- ack

	select {
	case manager.register <- client:
	case <-manager.done:
		conn.Close()
		return
	}

	go manager.writePump(client)
	manager.readPump(client, logger)
}

func (manager *WebSocketManager) readPump(client *Client, logger logrus.FieldLogger) {
	defer func() {
		select {
		case manager.unregister <- client:
		case <-manager.done:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).WithField("user_id", client.UserID).Debug("websocket closed")
			}
			return
		}

		var message Message
		if err := json.Unmarshal(msg, &message); err != nil {
			continue
		}
		if message.Type == MsgTypePing {
			pong, _ := json.Marshal(Message{Type: MsgTypePong})
			manager.mu.RLock()
			if manager.clients[client] {
				select {
				case client.send <- pong:
				default:
				}
			}
			manager.mu.RUnlock()
		}
	}
}

func (manager *WebSocketManager) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
