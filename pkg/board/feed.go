package board

import (
	"errors"
	"sync"

	"chatboard/pkg/models"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("parent comment not found")
)

// Feed is the post list, newest first. Every mutation publishes a fresh
// slice, so a snapshot returned by Posts is never modified afterwards.
type Feed struct {
	mu    sync.RWMutex
	posts []models.Post
	limit int
}

// NewFeed returns an empty feed. A positive limit caps the number of
// posts kept; the oldest are dropped first.
func NewFeed(limit int) *Feed {
	return &Feed{posts: []models.Post{}, limit: limit}
}

// Prepend puts p at the front of the feed.
func (f *Feed) Prepend(p models.Post) {
	p.Normalize()

	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.posts) + 1
	if f.limit > 0 && n > f.limit {
		n = f.limit
	}
	next := make([]models.Post, 0, n)
	next = append(next, p)
	next = append(next, f.posts[:n-1]...)
	f.posts = next
}

func (f *Feed) Posts() []models.Post {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.posts
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.posts)
}

// Post returns the first post with the given id.
func (f *Feed) Post(id int64) (models.Post, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range f.posts {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}

// AddComment appends a comment to every post with the given id. A nil
// parent appends at the top level; otherwise the comment becomes the last
// reply of parent, matched by identity. Only the path down to parent is
// copied. On error the feed is left as it was.
func (f *Feed) AddComment(postID int64, text string, parent *models.Comment) error {
	leaf, err := models.NewComment(text)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	next := make([]models.Post, len(f.posts))
	copy(next, f.posts)

	foundPost, inserted := false, false
	for i, p := range next {
		if p.ID != postID {
			continue
		}
		foundPost = true
		if parent == nil {
			p.Comments = appendComment(p.Comments, leaf)
			inserted = true
		} else if comments, ok := InsertReply(p.Comments, parent, leaf); ok {
			p.Comments = comments
			inserted = true
		}
		next[i] = p
	}

	switch {
	case !foundPost:
		return ErrPostNotFound
	case !inserted:
		return ErrCommentNotFound
	}
	f.posts = next
	return nil
}

// Filter returns the posts whose text, or the text of one of their
// top-level comments, contains query case-insensitively.
func (f *Feed) Filter(query string) []models.Post {
	posts := f.Posts()
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if Matches(p, query) {
			out = append(out, p)
		}
	}
	return out
}
