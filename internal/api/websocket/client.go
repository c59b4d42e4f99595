package websocket

import (
	"net/http"
	"time"

	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Send channel buffer size
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Switchers connect from arbitrary origins; the channel has no auth.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one tally controller connection.
type Client struct {
	id         uuid.UUID
	hub        *Hub
	conn       *websocket.Conn
	remoteAddr string
	send       chan []byte
	logger     *zap.Logger
}

// readPump turns inbound frames into hub events until the peer goes away.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				c.logger.Warn("Tally socket read error",
					zap.Error(err),
					zap.String("remote_addr", c.remoteAddr))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		event := types.Event{Conn: c.id, RemoteAddr: c.remoteAddr, Payload: data}
		switch messageType {
		case websocket.TextMessage:
			event.Kind = types.EventText
		case websocket.BinaryMessage:
			event.Kind = types.EventBinary
		default:
			continue
		}
		c.hub.enqueue(event)
	}
}

// writePump sends queued frames and keeps the connection alive with pings.
// Frames are never coalesced: each acknowledgement is its own message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles WebSocket upgrade requests
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade error",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		id:         uuid.New(),
		hub:        hub,
		conn:       conn,
		remoteAddr: conn.RemoteAddr().String(),
		send:       make(chan []byte, sendBufferSize),
		logger:     hub.logger,
	}

	if !client.hub.register(client) {
		conn.Close()
		return
	}

	// Start read and write pumps in separate goroutines
	go client.writePump()
	go client.readPump()
}
