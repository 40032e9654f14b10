package websockets

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message types
const (
	MsgTypeSubscribed = "subscribed"
	MsgTypePing       = "ping"
	MsgTypePong       = "pong"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Client represents a connected WebSocket user and the rooms it listens on.
type Client struct {
	Conn   *websocket.Conn
	UserID string
	Rooms  []string
	send   chan []byte
}

type WebSocketManager struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
}

// Message is the control frame exchanged with clients. Notifications are
// pushed as raw JSON produced by the caller.
type Message struct {
	Type  string   `json:"type"`
	Rooms []string `json:"rooms,omitempty"`
}
