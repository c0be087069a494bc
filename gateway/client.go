package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 25 * time.Second
)

// Client is one websocket connection on this gateway. Outbound traffic goes
// through the buffered send queue, drained by a single writer goroutine; the
// read loop lives in the server handler.
type Client struct {
	ConnID string
	ws     *websocket.Conn

	send      chan []byte
	closeOnce sync.Once
	log       *zap.Logger
}

func NewClient(connID string, ws *websocket.Conn, queueSize int, log *zap.Logger) *Client {
	return &Client{
		ConnID: connID,
		ws:     ws,
		send:   make(chan []byte, queueSize),
		log:    log,
	}
}

// Enqueue queues an outbound frame without blocking. A full queue means the
// peer is too slow; the frame is dropped and counted against it in logs.
func (c *Client) Enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		c.log.Warn("send queue full, dropping frame",
			zap.String("conn", c.ConnID))
	}
}

// CloseSend stops the writer goroutine; safe to call more than once.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// WritePump is the single writer for the connection: drains the send queue
// and keeps the peer alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("write failed",
					zap.String("conn", c.ConnID), zap.Error(err))
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
