package web

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// client is one connected websocket peer. The server owns the send channel
// and closes it exactly once (via removeClient); writePump treats the close
// as the signal to say goodbye on the wire.
type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// readPump consumes inbound messages until the connection dies. Each text
// message is one ControlRequest JSON object; bad messages are logged and
// skipped, the connection stays up.
func (c *client) readPump() {
	defer func() {
		c.server.removeClient(c)
		_ = c.conn.Close()
		c.server.wg.Done()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req ControlRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.server.logger.Warn("bad control message",
				slog.String("client_id", c.id),
				slog.Any("error", err))
			continue
		}

		if err := c.server.applyControl(req); err != nil {
			c.server.logger.Warn("control rejected",
				slog.String("client_id", c.id),
				slog.Any("error", err))
		}
	}
}

// writePump flushes queued telemetry and keeps the connection alive with
// pings. Whatever else is queued behind the first message gets batched into
// the same frame, newline separated.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.server.wg.Done()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				_, _ = w.Write([]byte{'\n'})
				_, _ = w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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
