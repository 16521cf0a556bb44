package conn

import (
	"github.com/gorilla/websocket"

	"github.com/connstorm/connstorm/internal/model"
)

// wsConn is the slice of *websocket.Conn the state machine needs.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// dialWebSocket performs one WebSocket connection attempt.
func (c *Connection) dialWebSocket() {
	c.mu.Lock()
	started := c.attemptStartedAt
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		TLSClientConfig:  c.cfg.TLS,
	}

	wsc, _, err := dialer.Dial(c.cfg.URL, nil)
	if err != nil {
		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			return
		}
		c.state = StateError
		c.mu.Unlock()

		c.logger.Debug("websocket dial failed", "error", err)
		c.emit(model.EventError, 0, err)
		c.scheduleRetry()
		return
	}

	c.mu.Lock()
	if c.closing {
		// Shutdown won the race; tear the socket down silently.
		c.mu.Unlock()
		wsc.Close()
		return
	}
	c.ws = wsc
	c.state = StateOpen
	c.mu.Unlock()

	c.emit(model.EventOpen, msSince(started), nil)
	go c.readLoop(wsc)
}

// readLoop consumes the socket until it fails or is torn down.
func (c *Connection) readLoop(wsc wsConn) {
	for {
		_, _, err := wsc.ReadMessage()
		if err == nil {
			continue
		}

		c.mu.Lock()
		if c.closing || c.ws != wsc {
			// Intentional teardown, or a stale loop from a previous attempt.
			c.mu.Unlock()
			return
		}
		c.ws = nil
		remoteClosed := websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
		)
		if remoteClosed {
			c.state = StateClosed
		} else {
			c.state = StateError
		}
		c.mu.Unlock()

		if remoteClosed {
			c.emit(model.EventClose, 0, nil)
		} else {
			// A failed open socket is also gone; report the close so the
			// open-connection gauge stays balanced.
			c.emit(model.EventError, 0, err)
			c.emit(model.EventClose, 0, nil)
		}
		c.scheduleRetry()
		return
	}
}
