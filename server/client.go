package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket timeouts follow the gorilla chat example
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Client messages are small control requests
	maxMessageSize = 4096
)

// Client is one WebSocket connection
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan interface{}
	id        string
	closeOnce sync.Once
}

// readPump handles control messages until the connection drops
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Warnw("JSON unmarshal error", "error", err.Error(), "client_id", c.id)
			c.hub.sendTo(c, ErrorMessage{Type: MsgTypeError, Message: "malformed message"})
			continue
		}
		c.routeMessage(&msg)
	}
}

// handleReadError logs unexpected close codes only
func (c *Client) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
	) {
		c.hub.logger.Warnw("WebSocket read error", "error", err.Error(), "client_id", c.id)
	}
}

// routeMessage dispatches a control message
func (c *Client) routeMessage(msg *ClientMessage) {
	switch msg.Type {
	case MsgTypeToggle:
		if c.hub.controls == nil {
			c.hub.sendTo(c, ErrorMessage{Type: MsgTypeError, Message: "no pipeline attached"})
			return
		}
		enabled := c.hub.controls.Toggle()
		c.hub.logger.Infow("annotations toggled", "enabled", enabled, "client_id", c.id)
		c.hub.broadcast(SettingsMessage{Type: MsgTypeSettings, Enabled: enabled})

	case MsgTypeClearCache:
		if c.hub.controls == nil {
			c.hub.sendTo(c, ErrorMessage{Type: MsgTypeError, Message: "no pipeline attached"})
			return
		}
		c.hub.controls.ClearCache()
		c.hub.logger.Infow("icon cache cleared", "client_id", c.id)

	case MsgTypeResend:
		c.resend(msg.URI)

	default:
		c.hub.sendTo(c, ErrorMessage{Type: MsgTypeError, Message: "unknown message type: " + msg.Type})
	}
}

// resend queues the cached table for uri, or every cached table when uri is empty
func (c *Client) resend(uri string) {
	if uri != "" {
		t, ok := c.hub.Table(uri)
		if !ok {
			c.hub.sendTo(c, ErrorMessage{Type: MsgTypeError, Message: "no table for " + uri})
			return
		}
		c.hub.sendTo(c, RenderTableMessage{Type: MsgTypeRenderTable, Table: t, Timestamp: time.Now().Unix()})
		return
	}

	c.hub.mu.RLock()
	var msgs []RenderTableMessage
	for _, t := range c.hub.tables {
		msgs = append(msgs, RenderTableMessage{Type: MsgTypeRenderTable, Table: t, Timestamp: time.Now().Unix()})
	}
	c.hub.mu.RUnlock()

	for _, m := range msgs {
		c.hub.sendTo(c, m)
	}
}

// writePump drains the send queue and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.hub.ctx.Done():
			return
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.hub.logger.Debugw("message write error", "error", err.Error(), "client_id", c.id)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close closes the send queue once
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
