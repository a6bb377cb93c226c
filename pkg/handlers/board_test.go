package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chatboard/pkg/board"
	"chatboard/pkg/broker"
	"chatboard/pkg/envelope"
	"chatboard/pkg/hub"
	"chatboard/pkg/models"

	"go.uber.org/zap"
)

type wsConn struct {
	in  chan []byte
	mu  sync.Mutex
	out []envelope.Envelope
}

func newWSConn() *wsConn { return &wsConn{in: make(chan []byte, 8)} }

func (c *wsConn) ReadMessage() (int, []byte, error) {
	raw, ok := <-c.in
	if !ok {
		return 0, nil, errors.New("closed")
	}
	return 1, raw, nil
}

func (c *wsConn) WriteMessage(_ int, data []byte) error {
	env, err := envelope.Unmarshal(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.out = append(c.out, env)
	c.mu.Unlock()
	return nil
}

func (c *wsConn) Close() error { return nil }

func (c *wsConn) received(event string) []envelope.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []envelope.Envelope
	for _, e := range c.out {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeBroker struct {
	mu        sync.Mutex
	published []envelope.Envelope
	handlers  map[string]broker.HandlerFunc
}

func (f *fakeBroker) Publish(env envelope.Envelope) error {
	f.mu.Lock()
	f.published = append(f.published, env)
	f.mu.Unlock()
	return nil
}

func (f *fakeBroker) On(event string, fn broker.HandlerFunc) {
	if f.handlers == nil {
		f.handlers = map[string]broker.HandlerFunc{}
	}
	f.handlers[event] = fn
}

func (f *fakeBroker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

type fakeCache struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeCache) GetPosts(context.Context, string) ([]models.Post, bool) { return nil, false }
func (f *fakeCache) SetPosts(context.Context, string, []models.Post, time.Duration) {}
func (f *fakeCache) DelPattern(_ context.Context, pattern string) {
	f.mu.Lock()
	f.deleted = append(f.deleted, pattern)
	f.mu.Unlock()
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

type fixture struct {
	hub    *hub.Hub
	feed   *board.Feed
	broker *fakeBroker
	cache  *fakeCache
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		hub:    hub.New(zap.NewNop()),
		feed:   board.NewFeed(0),
		broker: &fakeBroker{},
		cache:  &fakeCache{},
	}
	b := NewBoard(f.hub, f.feed, zap.NewNop(), WithBroker(f.broker), WithCache(f.cache))
	b.RegisterActions()
	return f
}

func (f fixture) connect(t *testing.T, n int) []*wsConn {
	t.Helper()
	conns := make([]*wsConn, n)
	for i := range conns {
		conns[i] = newWSConn()
		go f.hub.HandleClientConn(conns[i])
	}
	eventually(t, func() bool { return f.hub.ClientCount() == n })
	return conns
}

func send(t *testing.T, c *wsConn, event string, data any) {
	t.Helper()
	env, err := envelope.NewEvent(event, data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw, _ := env.Marshal()
	c.in <- raw
}

func TestCreatePost_RelaysToOthersAndFansOut(t *testing.T) {
	f := newFixture(t)
	conns := f.connect(t, 3)
	sender := conns[0]

	send(t, sender, envelope.EventCreatePost, models.Post{ID: 77, Text: "hello board", Comments: []*models.Comment{}})

	for _, c := range conns[1:] {
		c := c
		eventually(t, func() bool { return len(c.received(envelope.EventNewPost)) == 1 })
		p, err := envelope.ParseData[models.Post](c.received(envelope.EventNewPost)[0])
		if err != nil || p.ID != 77 || p.Text != "hello board" {
			t.Fatalf("unexpected relayed post %#v err=%v", p, err)
		}
	}
	if len(sender.received(envelope.EventNewPost)) != 0 {
		t.Fatalf("sender must not receive its own post")
	}
	eventually(t, func() bool { return f.broker.count() == 1 })
	if f.feed.Len() != 1 {
		t.Fatalf("relay feed must hold the post")
	}
	f.cache.mu.Lock()
	defer f.cache.mu.Unlock()
	if len(f.cache.deleted) != 1 || f.cache.deleted[0] != "board:search:*" {
		t.Fatalf("search cache must be invalidated, got %v", f.cache.deleted)
	}
}

func TestCreatePost_RejectsBlankText(t *testing.T) {
	f := newFixture(t)
	conns := f.connect(t, 2)

	send(t, conns[0], envelope.EventCreatePost, models.Post{ID: 1, Text: " \t "})

	eventually(t, func() bool { return len(conns[0].received("create_post.error")) == 1 })
	if e := conns[0].received("create_post.error")[0]; e.Error == nil || e.Error.Code != 400 {
		t.Fatalf("unexpected error answer %#v", e)
	}
	if len(conns[1].received(envelope.EventNewPost)) != 0 || f.feed.Len() != 0 || f.broker.count() != 0 {
		t.Fatalf("blank post must not be relayed")
	}
}

func TestRemotePost_BroadcastsToAllLocalClients(t *testing.T) {
	f := newFixture(t)
	conns := f.connect(t, 2)

	env, _ := envelope.NewEvent(envelope.EventNewPost, models.Post{ID: 5, Text: "from elsewhere"})
	env.Origin = "other-instance"
	f.broker.handlers[envelope.EventNewPost](env)

	for _, c := range conns {
		c := c
		eventually(t, func() bool { return len(c.received(envelope.EventNewPost)) == 1 })
	}
	if p, ok := f.feed.Post(5); !ok || p.Comments == nil {
		t.Fatalf("remote post must be stored normalized, got %#v ok=%v", p, ok)
	}
	if f.broker.count() != 0 {
		t.Fatalf("remote posts must not be republished")
	}
}
