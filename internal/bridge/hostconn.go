package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oresand/toolbridge/internal/logging"
)

// hostConn is the single authenticated host connection.
type hostConn struct {
	ConnID      string
	Info        HostInfo
	ConnectedAt time.Time

	socket *websocket.Conn
	mu     sync.Mutex
	closed bool
	log    *logging.Logger
}

func newHostConn(conn *websocket.Conn, info HostInfo, log *logging.Logger) *hostConn {
	return &hostConn{
		ConnID:      uuid.New().String(),
		Info:        info,
		ConnectedAt: time.Now(),
		socket:      conn,
		log:         log,
	}
}

// Send writes a frame to the host. Thread-safe.
func (c *hostConn) Send(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrHostClosed
	}
	return c.socket.WriteJSON(frame)
}

// ReadFrame reads the next frame from the WebSocket.
func (c *hostConn) ReadFrame() (Frame, error) {
	_, msg, err := c.socket.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Close closes the WebSocket connection.
func (c *hostConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.socket.Close()
}
