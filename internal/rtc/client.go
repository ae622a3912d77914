package rtc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/brewbean/livecup/internal/eventbus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// ErrClientClosed is returned by Send after the connection has been closed.
var ErrClientClosed = errors.New("rtc: client closed")

// ClientOptions configures Dial.
type ClientOptions struct {
	URL      string // hub endpoint, e.g. ws://localhost:7880/rtc
	Room     string
	Identity string // generated when empty
	Logger   *log.Logger
	Dialer   *websocket.Dialer
	RoomOpts []RoomOption
}

// Client connects a Room to the relay hub over a websocket.
type Client struct {
	identity string
	conn     *websocket.Conn
	room     *Room
	logger   *log.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dial connects to the hub and joins opts.Room. Inbound frames are delivered
// to the returned client's Room until Close is called or the hub goes away.
func Dial(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.Room == "" {
		return nil, errors.New("rtc: room name is required")
	}
	if opts.Identity == "" {
		opts.Identity = "viewer-" + uuid.NewString()[:8]
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	endpoint, err := joinURL(opts.URL, opts.Room, opts.Identity)
	if err != nil {
		return nil, err
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("rtc: dial %s: %w", endpoint, err)
	}

	c := &Client{
		identity: opts.Identity,
		conn:     conn,
		room:     NewRoom(opts.Room, opts.RoomOpts...),
		logger:   logger,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
	c.room.SetPublisher(c)

	c.wg.Add(2)
	go c.readPump()
	go c.writePump()

	logger.Printf("[rtc] joined room %s as %s", opts.Room, opts.Identity)
	return c, nil
}

func joinURL(raw, room, identity string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("rtc: parse hub url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("rtc: unsupported hub url scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("room", room)
	q.Set("identity", identity)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Room returns the session handle fed by this connection.
func (c *Client) Room() *Room {
	return c.room
}

// Identity returns the participant identity announced to the hub.
func (c *Client) Identity() string {
	return c.identity
}

// Done is closed once the connection has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send queues a packet for the hub. It implements Publisher.
func (c *Client) Send(ctx context.Context, packet DataPacket) error {
	frame, err := EncodeFrame(Frame{
		Kind:    packet.Kind,
		Topic:   packet.Topic,
		Payload: packet.Payload,
	})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close leaves the room and waits for the pumps to exit.
func (c *Client) Close() error {
	c.shutdown()
	c.wg.Wait()
	return nil
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.room.Close()
	})
}

func (c *Client) readPump() {
	defer c.wg.Done()
	defer c.shutdown()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				select {
				case <-c.done:
				default:
					c.logger.Printf("[rtc] connection error: %v", err)
				}
			}
			return
		}

		var packet DataPacket
		switch messageType {
		case websocket.TextMessage:
			frame, err := DecodeFrame(message)
			if err != nil {
				c.logger.Printf("[rtc] dropping unreadable frame: %v", err)
				continue
			}
			packet = frame.Packet()
		case websocket.BinaryMessage:
			// Raw payload without relay metadata.
			packet = DataPacket{Payload: message, Kind: KindReliable}
		default:
			continue
		}
		c.room.deliver(context.Background(), eventbus.SourceRTCClient, packet)
	}
}

func (c *Client) writePump() {
	defer c.wg.Done()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.flush()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Printf("[rtc] write failed: %v", err)
				c.shutdown()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		}
	}
}

// flush writes frames queued before Close so a publish followed by an
// immediate Close still reaches the hub.
func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}
