package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"chatboard/pkg/envelope"

	"github.com/fasthttp/websocket"
	"go.uber.org/zap"
)

const (
	redialDelay    = 3 * time.Second
	reconnectDelay = 1 * time.Second
)

// Client is the push-channel end used by board clients. It keeps one
// websocket to the relay open, reconnecting when it drops.
type Client struct {
	url  string
	log  *zap.Logger
	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
	once sync.Once

	handlersMu sync.RWMutex
	handlers   map[string]func(envelope.Envelope)
}

// NewClient returns a client for url, e.g. "ws://localhost:8082/ws".
func NewClient(url string, log *zap.Logger) *Client {
	return &Client{
		url:      url,
		log:      log.Named("hub-client"),
		done:     make(chan struct{}),
		handlers: make(map[string]func(envelope.Envelope)),
	}
}

// On registers fn for inbound frames carrying event.
func (c *Client) On(event string, fn func(envelope.Envelope)) {
	c.handlersMu.Lock()
	c.handlers[event] = fn
	c.handlersMu.Unlock()
}

// Connect dials and serves the connection, reconnecting on failure. It
// returns when ctx is done or Close is called.
func (c *Client) Connect(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	for {
		if c.closed() {
			return
		}

		conn, err := c.dial()
		if err != nil {
			c.log.Warn("dial failed, retrying", zap.String("url", c.url), zap.Duration("in", redialDelay), zap.Error(err))
			if !c.sleep(redialDelay) {
				return
			}
			continue
		}

		c.log.Info("connected", zap.String("url", c.url))
		c.readLoop(conn)
		c.log.Info("disconnected, reconnecting", zap.String("url", c.url))
		if !c.sleep(reconnectDelay) {
			return
		}
	}
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Emit sends event with data. While disconnected the frame is dropped.
func (c *Client) Emit(event string, data any) error {
	env, err := envelope.NewEvent(event, data)
	if err != nil {
		return err
	}
	raw, err := env.Marshal()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		c.log.Debug("not connected, dropping frame", zap.String("event", event))
		return nil
	}
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
}

func (c *Client) dial() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed() {
		conn.Close()
		return nil, errors.New("client closed")
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := envelope.Unmarshal(raw)
		if err != nil {
			c.log.Warn("undecodable frame", zap.Error(err))
			continue
		}

		c.handlersMu.RLock()
		fn, ok := c.handlers[env.Event]
		c.handlersMu.RUnlock()
		if ok {
			fn(env)
		}
	}
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.done:
		return false
	case <-t.C:
		return true
	}
}
