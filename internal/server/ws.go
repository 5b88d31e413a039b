package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/ayusman/facecam/internal/log"
)

const (
	clientBuffer = 16
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool, any origin may watch
	},
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Hub fans out event messages to websocket clients.
type Hub struct {
	clients cmap.ConcurrentMap[string, *client]
}

func NewHub() *Hub {
	return &Hub{clients: cmap.New[*client]()}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	return h.clients.Count()
}

// Broadcast queues msg for every client. Slow clients drop messages rather
// than stall the frame loop.
func (h *Hub) Broadcast(msg []byte) {
	for item := range h.clients.IterBuffered() {
		select {
		case item.Val.send <- msg:
		default:
			log.Debug("Dropping event for slow client", "client", item.Key)
		}
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	for item := range h.clients.IterBuffered() {
		item.Val.conn.Close()
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
// Clients may send "ping" and get "pong" back.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientBuffer),
		done: make(chan struct{}),
	}
	h.clients.Set(c.id, c)
	log.Debug("Websocket client connected", "client", c.id)

	defer func() {
		h.clients.Remove(c.id)
		close(c.done)
		conn.Close()
		log.Debug("Websocket client disconnected", "client", c.id)
	}()

	go c.writeLoop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if string(message) == "ping" {
			select {
			case c.send <- []byte("pong"):
			default:
			}
		}
	}
}

// writeLoop is the only writer on the connection.
func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}
