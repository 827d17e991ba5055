package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

const defaultSendBuffer = 64

// Client is one WebSocket connection watching a single room.
type Client struct {
	ID       string
	RoomID   string
	DeviceID string
	Hub      *Hub
	Conn     *websocket.Conn
	// Send is owned by the hub, which closes it on removal.
	Send   chan []byte
	pong   chan struct{}
	config config.WebSocketConfig
}

func NewClient(id, roomID, deviceID string, hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	size := cfg.SendBuffer
	if size <= 0 {
		size = defaultSendBuffer
	}
	return &Client{
		ID:       id,
		RoomID:   roomID,
		DeviceID: deviceID,
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, size),
		pong:     make(chan struct{}, 1),
		config:   cfg,
	}
}

// ReadPump drains inbound frames so control messages are processed. Clients
// only receive events; inbound data frames other than pings are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Warn().Err(err).Str("client_id", c.ID).Str(log.FieldRoomID, c.RoomID).Msg("websocket read error")
			}
			break
		}

		var base struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(message, &base) == nil && base.Type == "ping" {
			c.queuePong()
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-c.pong:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, pongFrame); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var pongFrame = []byte(`{"type":"pong"}`)

// queuePong asks WritePump to answer an application-level ping. Pending pongs
// coalesce. The pong channel is never closed, so this is safe after the hub
// has dropped the client.
func (c *Client) queuePong() {
	select {
	case c.pong <- struct{}{}:
	default:
	}
}
