package realtime

import (
	"context"
	"encoding/json"
	"time"

	"huddle/internal/core/domain"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// client is one attached WebSocket connection. Inbound events are handled
// sequentially by the read pump, which gives each connection FIFO semantics
// for its own actions; cross-connection ordering is decided by handler
// completion order.
type client struct {
	id      domain.ConnectionID
	conn    *websocket.Conn
	gateway *Gateway
	send    chan []byte
	limiter *rate.Limiter
}

func (c *client) readPump(ctx context.Context) {
	defer c.gateway.detach(c)

	c.conn.SetReadLimit(c.gateway.maxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(c.gateway.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.gateway.pongTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.gateway.logger.Infow("unexpected connection close",
					"connection_id", c.id,
					"error", err,
				)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.gateway.pongTimeout))

		if c.limiter != nil && !c.limiter.Allow() {
			c.sendError("rate limit exceeded")
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError("malformed event envelope")
			continue
		}

		if err := c.gateway.dispatch(ctx, c, env); err != nil {
			// All failures are reported privately to the initiating
			// connection; nothing is broadcast.
			c.sendError(err.Error())
		}
	}
}

func (c *client) writePump() {
	pingTicker := time.NewTicker(c.gateway.pingInterval)
	defer func() {
		pingTicker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.gateway.writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.gateway.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands an encoded frame to the write pump. A receiver whose buffer
// is full is considered dead and dropped rather than allowed to stall a
// broadcast.
func (c *client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) sendError(message string) {
	data, err := encodeEvent(domain.ErrorEvent{Message: message})
	if err != nil {
		return
	}
	c.enqueue(data)
}
