package hub

import (
	"sync"

	"chatboard/pkg/envelope"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the hub uses.
// *websocket.Conn from gofiber/contrib/websocket satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type ActionHandler func(envelope.Envelope)

type clientConn struct {
	id   string
	conn Conn
	mu   sync.Mutex
	log  *zap.Logger
}

func (cc *clientConn) send(data []byte) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if err := cc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		cc.log.Debug("send failed", zap.String("conn_id", cc.id), zap.Error(err))
	}
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*clientConn
	handlers map[string]ActionHandler
	log      *zap.Logger
}

func New(log *zap.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*clientConn),
		handlers: make(map[string]ActionHandler),
		log:      log.Named("hub"),
	}
}

// On registers fn for frames carrying event. Handlers run on the reading
// goroutine of the connection, so frames of one client are handled in
// arrival order.
func (h *Hub) On(event string, fn ActionHandler) {
	h.mu.Lock()
	h.handlers[event] = fn
	h.mu.Unlock()
}

// HandleClientConn serves c until it fails or closes.
func (h *Hub) HandleClientConn(c Conn) {
	cc := &clientConn{id: uuid.NewString(), conn: c, log: h.log}

	h.mu.Lock()
	h.clients[cc.id] = cc
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client connected", zap.String("conn_id", cc.id), zap.Int("total", total))
	h.Broadcast(envelope.EventUserCount, map[string]int{"count": total})

	defer func() {
		h.mu.Lock()
		delete(h.clients, cc.id)
		total := len(h.clients)
		h.mu.Unlock()
		c.Close()
		h.log.Info("client disconnected", zap.String("conn_id", cc.id), zap.Int("total", total))
		h.Broadcast(envelope.EventUserCount, map[string]int{"count": total})
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}

		env, err := envelope.Unmarshal(raw)
		if err != nil {
			errResp := envelope.New(envelope.EventError)
			errResp.Error = &envelope.ErrorPayload{Code: 400, Message: "invalid JSON"}
			h.sendTo(cc, errResp)
			continue
		}

		if env.Event == envelope.EventPing {
			h.sendTo(cc, envelope.New(envelope.EventPong))
			continue
		}

		env.ConnID = cc.id

		h.mu.RLock()
		handler, ok := h.handlers[env.Event]
		h.mu.RUnlock()
		if !ok {
			h.sendTo(cc, envelope.NewError(env, 404, "unknown event: "+env.Event))
			continue
		}

		handler(env)
	}
}

// ReplyError sends an error answer to the connection original came from.
func (h *Hub) ReplyError(original envelope.Envelope, code int, msg string) {
	h.mu.RLock()
	cc, ok := h.clients[original.ConnID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.sendTo(cc, envelope.NewError(original, code, msg))
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event string, data any) {
	h.BroadcastExcept(event, data, "")
}

// BroadcastExcept sends an event to every client but the connection connID.
func (h *Hub) BroadcastExcept(event string, data any, connID string) {
	env, err := envelope.NewEvent(event, data)
	if err != nil {
		h.log.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}
	raw, err := env.Marshal()
	if err != nil {
		return
	}
	for _, cc := range h.snapshot() {
		if cc.id != connID {
			cc.send(raw)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) sendTo(cc *clientConn, env envelope.Envelope) {
	raw, err := env.Marshal()
	if err != nil {
		return
	}
	cc.send(raw)
}

func (h *Hub) snapshot() []*clientConn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*clientConn, 0, len(h.clients))
	for _, cc := range h.clients {
		out = append(out, cc)
	}
	return out
}
