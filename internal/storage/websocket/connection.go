package websocket

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	sendBuffer   = 4096
	ackBuffer    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

var timeNow = time.Now

// connection owns the socket. A single goroutine writes; another reads acks.
type connection struct {
	mu           sync.Mutex
	conn         *ws.Conn
	closed       bool
	reconnecting bool
	// replay is resent first after a reconnect so the server knows the run.
	replay []byte

	sendCh chan []byte
	ackCh  chan AckMessage
	done   chan struct{}

	endpoint string
	log      zerolog.Logger
}

func newConnection(log zerolog.Logger) *connection {
	return &connection{
		sendCh: make(chan []byte, sendBuffer),
		ackCh:  make(chan AckMessage, ackBuffer),
		done:   make(chan struct{}),
		log:    log,
	}
}

// dial connects once and starts the read and write loops.
func (c *connection) dial(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}
	c.endpoint = u.String()

	conn, err := c.open()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop(conn)
	go c.readLoop(conn)
	return nil
}

func (c *connection) open() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) setReplay(data []byte) {
	c.mu.Lock()
	c.replay = data
	c.mu.Unlock()
}

// writeLoop drains sendCh into conn until shutdown or a write error.
func (c *connection) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := write(conn, data); err != nil {
				c.log.Warn().Err(err).Msg("WebSocket write failed")
				// the message that failed is not retried
				go c.reconnect(conn)
				return
			}
		}
	}
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(timeNow().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// readLoop routes acks to ackCh. Anything else is logged and ignored.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.log.Warn().Err(err).Msg("WebSocket read failed")
				go c.reconnect(conn)
			}
			return
		}

		var ack AckMessage
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != "ack" {
			c.log.Debug().Str("raw", string(msg)).Msg("Ignoring non-ack message")
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.log.Debug().Str("for", ack.For).Msg("Ack buffer full, dropping")
		}
	}
}

// reconnect replaces broken with a fresh connection, backing off
// exponentially. Only the first caller for a broken connection proceeds.
func (c *connection) reconnect(broken *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.reconnecting || c.conn != broken {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.conn = nil
	c.mu.Unlock()
	_ = broken.Close()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.log.Info().Int("attempt", attempt).Dur("backoff", backoff).Msg("Reconnecting WebSocket")
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)

		conn, err := c.open()
		if err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("Reconnect failed")
			continue
		}

		c.mu.Lock()
		replay := c.replay
		c.mu.Unlock()
		if replay != nil {
			if err := write(conn, replay); err != nil {
				c.log.Warn().Err(err).Msg("Replaying run start failed")
				_ = conn.Close()
				continue
			}
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.log.Info().Int("attempt", attempt).Msg("WebSocket reconnected")
		go c.writeLoop(conn)
		go c.readLoop(conn)
		return
	}
	c.log.Error().Int("attempts", maxReconnect).Msg("WebSocket reconnect gave up")
}

// send queues data for the write loop, dropping it when the buffer is full.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.log.Warn().Msg("WebSocket send buffer full, dropping message")
	}
}

// sendAndWait queues data and blocks until the server acks ackFor.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a close frame and stops both loops. Safe to call twice.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), timeNow().Add(writeWait))
	return conn.Close()
}
