package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"evo_chat_server/pkg/constants"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	// cross-origin clients are allowed; the token decides identity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Conn one realtime connection. UserID 0 is an anonymous connection.
type Conn struct {
	ID     string
	UserID int64

	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	rooms     map[int64]struct{} // guarded by Gateway.mu
}

// NewConn creates a connection that is not backed by a socket; frames queue on Outbound.
func NewConn(userID int64, buffer int) *Conn {
	if buffer <= 0 {
		buffer = constants.CHANNEL_SIZE
	}
	return &Conn{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		rooms:  make(map[int64]struct{}),
	}
}

// Outbound queued frames.
func (c *Conn) Outbound() <-chan []byte {
	return c.send
}

// Done is closed once the connection is disconnected.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// enqueue never blocks: a slow client loses frames and catches up on its next fetch.
func (c *Conn) enqueue(frame []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- frame:
	default:
		zap.L().Warn("ws: send queue full, frame dropped", zap.String("conn", c.ID), zap.Int64("user_id", c.UserID))
	}
}

func (c *Conn) sendEvent(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(outFrame{Event: event, Data: data})
	if err != nil {
		return
	}
	c.enqueue(frame)
}

// Serve upgrades the request and runs the connection until it closes.
// userID 0 opens an anonymous connection.
func (g *Gateway) Serve(w http.ResponseWriter, r *http.Request, userID int64) error {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := NewConn(userID, g.conf.SendBuffer)
	c.ws = ws

	// the upgraded connection outlives the HTTP request context
	g.Connect(context.Background(), c)
	go c.writePump(g)
	go c.readPump(g)
	zap.L().Info("ws connected", zap.String("conn", c.ID), zap.Int64("user_id", userID))
	return nil
}

func (g *Gateway) durations() (ping, pong, write time.Duration) {
	ping = time.Duration(g.conf.PingInterval) * time.Second
	pong = time.Duration(g.conf.PongWait) * time.Second
	write = time.Duration(g.conf.WriteWait) * time.Second
	if ping <= 0 {
		ping = 30 * time.Second
	}
	if pong <= ping {
		pong = ping * 2
	}
	if write <= 0 {
		write = 10 * time.Second
	}
	return
}

// readPump reads client frames. A read error or a missed heartbeat ends in Disconnect.
func (c *Conn) readPump(g *Gateway) {
	defer g.Disconnect(c)

	_, pongWait, _ := g.durations()
	if g.conf.MaxMessageSize > 0 {
		c.ws.SetReadLimit(g.conf.MaxMessageSize)
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Info("ws read ended", zap.String("conn", c.ID), zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		g.handleFrame(context.Background(), c, data)
	}
}

// writePump drains the send queue and keeps the heartbeat going.
func (c *Conn) writePump(g *Gateway) {
	pingInterval, _, writeWait := g.durations()
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		g.Disconnect(c)
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
