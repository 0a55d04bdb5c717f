// network/connection.go
package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/typerace/logger"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Connection is one live bidirectional client link.
type Connection interface {
	Send(data []byte) error
	ReadMessage() ([]byte, error)
	Close() error
	RemoteAddr() net.Addr
}

type ConnectionConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func DefaultConnectionConfig() ConnectionConfig {
	pongWait := 60 * time.Second
	return ConnectionConfig{
		WriteWait:      10 * time.Second,
		PongWait:       pongWait,
		PingPeriod:     (pongWait * 9) / 10,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     256,
	}
}

// WSConnection queues outbound frames and writes them from a single pump
// goroutine, so Send never blocks the caller on a slow peer.
type WSConnection struct {
	conn      *websocket.Conn
	cfg       ConnectionConfig
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewWSConnection(conn *websocket.Conn, cfg ConnectionConfig) *WSConnection {
	c := &WSConnection{
		conn: conn,
		cfg:  cfg,
		send: make(chan []byte, cfg.SendBuffer),
		done: make(chan struct{}),
	}

	conn.SetReadLimit(cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	go c.writePump()
	return c
}

func (c *WSConnection) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// ReadMessage blocks until the next text frame arrives or the connection fails.
func (c *WSConnection) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
			logger.Log.Warnf("Unexpected websocket close from %s: %v", c.RemoteAddr(), err)
		}
		return nil, err
	}
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	return data, nil
}

func (c *WSConnection) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *WSConnection) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Log.Debugf("Write to %s failed: %v", c.RemoteAddr(), err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
