package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatboard/pkg/board"
	"chatboard/pkg/broker"
	"chatboard/pkg/envelope"
	"chatboard/pkg/hub"
	"chatboard/pkg/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	searchKeyPrefix = "board:search:"
	searchCacheTTL  = 15 * time.Second
)

// Publisher fans events out to other relay instances.
type Publisher interface {
	Publish(env envelope.Envelope) error
	On(event string, fn broker.HandlerFunc)
}

type PostCache interface {
	GetPosts(ctx context.Context, key string) ([]models.Post, bool)
	SetPosts(ctx context.Context, key string, posts []models.Post, ttl time.Duration)
	DelPattern(ctx context.Context, pattern string)
}

type Option func(*BoardHandler)

// WithBroker enables cross-instance fan-out.
func WithBroker(p Publisher) Option {
	return func(b *BoardHandler) { b.broker = p }
}

// WithCache enables caching of search results.
func WithCache(c PostCache) Option {
	return func(b *BoardHandler) { b.cache = c }
}

// WithClock overrides the clock used for posts that arrive without an id.
func WithClock(now func() time.Time) Option {
	return func(b *BoardHandler) { b.now = now }
}

// BoardHandler relays posts between clients and keeps the relay's feed.
type BoardHandler struct {
	hub    *hub.Hub
	feed   *board.Feed
	broker Publisher
	cache  PostCache
	now    func() time.Time
	log    *zap.Logger
}

func NewBoard(h *hub.Hub, feed *board.Feed, log *zap.Logger, opts ...Option) *BoardHandler {
	b := &BoardHandler{
		hub:  h,
		feed: feed,
		now:  time.Now,
		log:  log.Named("board"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *BoardHandler) RegisterActions() {
	b.hub.On(envelope.EventCreatePost, b.createPost)
	if b.broker != nil {
		b.broker.On(envelope.EventNewPost, b.remotePost)
	}
}

// createPost relays a post from a websocket client to every other client.
// The sender has already shown the post locally.
func (b *BoardHandler) createPost(env envelope.Envelope) {
	p, err := envelope.ParseData[models.Post](env)
	if err != nil {
		b.log.Warn("rejected create_post", zap.String("conn_id", env.ConnID), zap.Error(err))
		b.hub.ReplyError(env, fiber.StatusBadRequest, "invalid post payload")
		return
	}

	p, err = b.accept(context.Background(), p)
	if err != nil {
		b.log.Warn("rejected create_post", zap.String("conn_id", env.ConnID), zap.Error(err))
		b.hub.ReplyError(env, fiber.StatusBadRequest, err.Error())
		return
	}

	b.hub.BroadcastExcept(envelope.EventNewPost, p, env.ConnID)
	b.fanOut(p)
}

// remotePost takes a post relayed by another instance.
func (b *BoardHandler) remotePost(env envelope.Envelope) {
	p, err := envelope.ParseData[models.Post](env)
	if err != nil {
		b.log.Warn("undecodable remote post", zap.String("origin", env.Origin), zap.Error(err))
		return
	}
	p.Normalize()
	b.feed.Prepend(p)
	b.invalidate(context.Background())

	b.log.Debug("remote post", zap.Int64("post_id", p.ID), zap.String("origin", env.Origin))
	b.hub.Broadcast(envelope.EventNewPost, p)
}

// List serves GET /posts?q=.
func (b *BoardHandler) List(c *fiber.Ctx) error {
	q := c.Query("q")
	key := searchKeyPrefix + strings.ToLower(q)

	if b.cache != nil {
		if posts, ok := b.cache.GetPosts(c.UserContext(), key); ok {
			return c.JSON(posts)
		}
	}

	posts := b.feed.Filter(q)
	if b.cache != nil {
		b.cache.SetPosts(c.UserContext(), key, posts, searchCacheTTL)
	}
	return c.JSON(posts)
}

// Create serves POST /posts, relaying the post to every websocket client.
func (b *BoardHandler) Create(c *fiber.Ctx) error {
	var p models.Post
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid post payload"})
	}

	p, err := b.accept(c.UserContext(), p)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	b.hub.Broadcast(envelope.EventNewPost, p)
	b.fanOut(p)
	return c.Status(fiber.StatusCreated).JSON(p)
}

// Status serves GET /hub/status.
func (b *BoardHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"clients": b.hub.ClientCount(),
		"posts":   b.feed.Len(),
	})
}

// accept validates p, stamps a missing id and prepends it to the feed.
func (b *BoardHandler) accept(ctx context.Context, p models.Post) (models.Post, error) {
	if strings.TrimSpace(p.Text) == "" {
		return p, models.ErrEmptyPost
	}
	if len(p.Text) > models.MaxTextLen {
		return p, fmt.Errorf("%w (max %d bytes)", models.ErrTextTooLong, models.MaxTextLen)
	}
	if p.ID == 0 {
		p.ID = b.now().UnixMilli()
	}
	p.Normalize()

	b.feed.Prepend(p)
	b.invalidate(ctx)

	b.log.Info("post relayed", zap.Int64("post_id", p.ID), zap.Int("len", len(p.Text)))
	return p, nil
}

func (b *BoardHandler) fanOut(p models.Post) {
	if b.broker == nil {
		return
	}
	env, err := envelope.NewEvent(envelope.EventNewPost, p)
	if err == nil {
		err = b.broker.Publish(env)
	}
	if err != nil {
		b.log.Error("fan-out failed", zap.Int64("post_id", p.ID), zap.Error(err))
	}
}

func (b *BoardHandler) invalidate(ctx context.Context) {
	if b.cache != nil {
		b.cache.DelPattern(ctx, searchKeyPrefix+"*")
	}
}

