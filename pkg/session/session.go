// Package session holds the client side of the board: the local feed,
// optimistic post creation over the push channel, and client-local
// comment threads.
package session

import (
	"sync"
	"time"

	"chatboard/pkg/board"
	"chatboard/pkg/envelope"
	"chatboard/pkg/models"

	"go.uber.org/zap"
)

// Emitter sends an event over the push channel. *hub.Client implements it.
type Emitter interface {
	Emit(event string, data any) error
}

type Option func(*Session)

// WithClock overrides the clock used to stamp new posts.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

type Session struct {
	feed    *board.Feed
	emitter Emitter
	now     func() time.Time
	log     *zap.Logger

	mu        sync.RWMutex
	listeners []func(models.Post)
}

func New(emitter Emitter, log *zap.Logger, opts ...Option) *Session {
	s := &Session{
		feed:    board.NewFeed(0),
		emitter: emitter,
		now:     time.Now,
		log:     log.Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Feed() *board.Feed {
	return s.feed
}

// CreatePost emits create_post and prepends the post locally without
// waiting for the relay. Blank text returns models.ErrEmptyPost and emits
// nothing. Emit failures are logged only.
func (s *Session) CreatePost(text string) (models.Post, error) {
	p, err := models.NewPost(text, s.now())
	if err != nil {
		return models.Post{}, err
	}
	if err := s.emitter.Emit(envelope.EventCreatePost, p); err != nil {
		s.log.Warn("emit create_post failed", zap.Int64("post_id", p.ID), zap.Error(err))
	}
	s.feed.Prepend(p)
	return p, nil
}

// AddComment adds a comment to the local copy of a post. Comments never
// leave the client.
func (s *Session) AddComment(postID int64, text string, parent *models.Comment) error {
	return s.feed.AddComment(postID, text, parent)
}

// Handle applies an inbound push-channel frame. new_post payloads are
// prepended; every other event is ignored.
func (s *Session) Handle(env envelope.Envelope) {
	if env.Event != envelope.EventNewPost {
		return
	}
	p, err := envelope.ParseData[models.Post](env)
	if err != nil {
		s.log.Warn("undecodable new_post", zap.Error(err))
		return
	}
	s.feed.Prepend(p)

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(p)
	}
}

// OnPost registers fn to run after a pushed post has been prepended.
func (s *Session) OnPost(fn func(models.Post)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Visible returns the feed filtered by query.
func (s *Session) Visible(query string) []models.Post {
	return s.feed.Filter(query)
}
