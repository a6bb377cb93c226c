package models

import (
	"strings"
	"time"
)

// MaxTextLen bounds post and comment text accepted by the relay.
const MaxTextLen = 5000

// Post is a top-level anonymous message. ID is the creation time in unix millis.
type Post struct {
	ID       int64      `json:"id"`
	Text     string     `json:"text"`
	Comments []*Comment `json:"comments"`
}

// Comment is a node of a reply tree. Comments have no identity of their
// own: a reply target is the *Comment itself, valid inside one snapshot.
type Comment struct {
	Text    string     `json:"text"`
	Replies []*Comment `json:"replies"`
}

// NewPost builds a post stamped with now. The text is stored as typed.
func NewPost(text string, now time.Time) (Post, error) {
	if strings.TrimSpace(text) == "" {
		return Post{}, ErrEmptyPost
	}
	return Post{
		ID:       now.UnixMilli(),
		Text:     text,
		Comments: []*Comment{},
	}, nil
}

func NewComment(text string) (*Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyComment
	}
	return &Comment{Text: text, Replies: []*Comment{}}, nil
}

// CommentAt resolves a comment by index path: the top-level index first,
// then one reply index per level. It returns nil for an empty or
// out-of-range path.
func (p Post) CommentAt(path ...int) *Comment {
	if len(path) == 0 {
		return nil
	}
	level := p.Comments
	var c *Comment
	for _, i := range path {
		if i < 0 || i >= len(level) {
			return nil
		}
		c = level[i]
		level = c.Replies
	}
	return c
}

// Normalize replaces nil comment and reply slices with empty ones so the
// post encodes as `[]` rather than `null`. Null entries are dropped.
// Comment nodes are never written to: a node that needs a change is
// replaced by a copy, so trees shared with other posts stay intact.
func (p *Post) Normalize() {
	p.Comments, _ = normalizeComments(p.Comments)
}

// normalizeComments returns in itself when nothing needed fixing.
func normalizeComments(in []*Comment) ([]*Comment, bool) {
	if in == nil {
		return []*Comment{}, true
	}
	var out []*Comment
	for i, c := range in {
		next := c
		if c != nil {
			if replies, changed := normalizeComments(c.Replies); changed {
				next = &Comment{Text: c.Text, Replies: replies}
			}
		}
		if out == nil && (c == nil || next != c) {
			out = make([]*Comment, i, len(in))
			copy(out, in[:i])
		}
		if out != nil && next != nil {
			out = append(out, next)
		}
	}
	if out == nil {
		return in, false
	}
	return out, true
}
