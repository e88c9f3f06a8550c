// Package handlers/client.go
package handlers

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/4cecoder/snakearena/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: false,
}

// datagramWriter is the part of *net.UDPConn a client needs.
type datagramWriter interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// Client is one player's pair of channels: the websocket carries control
// frames, the shared UDP socket carries snapshots once an address is bound.
type Client struct {
	ID     int
	Conn   *websocket.Conn
	Send   chan []byte
	Mutex  sync.Mutex
	udp    datagramWriter
	addr   *net.UDPAddr
	closed bool
	done   chan struct{}
	logger *log.Logger

	// pingEvery and onPong are set before the pumps start.
	pingEvery time.Duration
	onPong    func()
}

func NewClient(conn *websocket.Conn, udp datagramWriter, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		Conn:   conn,
		Send:      make(chan []byte, sendBuffer),
		udp:       udp,
		done:      make(chan struct{}),
		logger:    logger,
		pingEvery: pingPeriod,
	}
}

// SetID attaches the admitted player's id.
func (c *Client) SetID(id int) {
	c.Mutex.Lock()
	c.ID = id
	c.Mutex.Unlock()
}

// KeepAlive pings at least every interval and calls onPong for every pong,
// so an idle but connected client counts as alive.
func (c *Client) KeepAlive(interval time.Duration, onPong func()) {
	if interval > 0 && interval < c.pingEvery {
		c.pingEvery = interval
	}
	c.onPong = onPong
}

// ReadPump delivers every frame to handle until the connection fails or is
// closed. It runs on the caller's goroutine.
func (c *Client) ReadPump(handle func(message []byte)) {
	defer c.Close()

	c.Conn.SetReadLimit(models.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		if c.onPong != nil {
			c.onPong()
		}
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Printf("websocket error for player %d: %v", c.ID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logger.Printf("discarding non-text frame from player %d", c.ID)
			continue
		}
		handle(message)
	}
}

// WritePump is the only writer of the websocket. After Close it flushes what
// is already buffered and sends a close frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.logger.Printf("error writing to websocket: %v", err)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			for {
				select {
				case message := <-c.Send:
					if err := c.write(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

// SendMessage queues a frame without blocking; a full buffer drops it.
func (c *Client) SendMessage(message []byte) error {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	select {
	case c.Send <- message:
		return nil
	default:
		c.logger.Printf("Send buffer is full, dropping message for player %d", c.ID)
		return models.ErrSendBufferFull
	}
}

func (c *Client) SendReliable(message []byte) error {
	return c.SendMessage(message)
}

func (c *Client) SendUnreliable(datagram []byte) error {
	c.Mutex.Lock()
	addr, closed := c.addr, c.closed
	c.Mutex.Unlock()
	if closed {
		return net.ErrClosed
	}
	if c.udp == nil || addr == nil {
		return models.ErrNoRoute
	}
	if _, err := c.udp.WriteToUDP(datagram, addr); err != nil {
		return fmt.Errorf("write datagram to %s: %w", addr, err)
	}
	return nil
}

func (c *Client) BindUnreliable(addr *net.UDPAddr) {
	c.Mutex.Lock()
	c.addr = addr
	c.Mutex.Unlock()
}

// Close stops the client. The write pump drains pending frames before the
// socket is closed; repeated calls are no-ops.
func (c *Client) Close() error {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	return nil
}

// sendNow writes a frame directly, for use before the write pump starts.
func (c *Client) sendNow(message []byte) error {
	if err := c.write(websocket.TextMessage, message); err != nil {
		return errors.Join(err, c.Conn.Close())
	}
	return nil
}
