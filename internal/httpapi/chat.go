package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same-origin policy is enforced by the reverse proxy in front.
		return true
	},
}

const (
	chatWriteWait  = 10 * time.Second
	chatPongWait   = 60 * time.Second
	chatPingPeriod = 50 * time.Second
	chatMaxMessage = 4096
)

// ChatHub relays messages between the two parties of a matched item,
// one room per conversation id. It is a pure transport: claim approval,
// identity, and message history belong to external collaborators.
type ChatHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*chatClient]struct{}
}

type chatClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewChatHub creates an empty hub.
func NewChatHub() *ChatHub {
	return &ChatHub{
		rooms: make(map[string]map[*chatClient]struct{}),
	}
}

// Handle upgrades the request and joins the client to its conversation room.
func (h *ChatHub) Handle(c *gin.Context) {
	conversationID := c.Param("id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation id required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &chatClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	h.join(conversationID, client)

	go h.writeLoop(client)
	h.readLoop(conversationID, client)
}

func (h *ChatHub) join(room string, client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*chatClient]struct{})
	}
	h.rooms[room][client] = struct{}{}
}

func (h *ChatHub) leave(room string, client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[room]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
		}
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
}

// broadcast relays a message to every other member of the room.
func (h *ChatHub) broadcast(room string, from *chatClient, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		if client == from {
			continue
		}

		select {
		case client.send <- message:
		default:
			// Slow consumer; drop the message rather than block the room.
		}
	}
}

func (h *ChatHub) readLoop(room string, client *chatClient) {
	defer func() {
		h.leave(room, client)
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(chatMaxMessage)
	_ = client.conn.SetReadDeadline(time.Now().Add(chatPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(chatPongWait))
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		h.broadcast(room, client, message)
	}
}

func (h *ChatHub) writeLoop(client *chatClient) {
	ticker := time.NewTicker(chatPingPeriod)

	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
