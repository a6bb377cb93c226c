package models

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire layout, protobuf compatible:
//
//	message PostList { repeated Post posts = 1; }
//	message Post     { int64 id = 1; string text = 2; repeated Comment comments = 3; }
//	message Comment  { string text = 1; repeated Comment replies = 2; }
const (
	fieldListPost = 1

	fieldPostID      = 1
	fieldPostText    = 2
	fieldPostComment = 3

	fieldCommentText  = 1
	fieldCommentReply = 2
)

var ErrMalformed = errors.New("malformed post encoding")

// MarshalPosts encodes posts in protobuf wire format.
func MarshalPosts(posts []Post) []byte {
	var b []byte
	for i := range posts {
		b = protowire.AppendTag(b, fieldListPost, protowire.BytesType)
		b = protowire.AppendBytes(b, appendPost(nil, &posts[i]))
	}
	return b
}

// UnmarshalPosts decodes the output of MarshalPosts.
func UnmarshalPosts(b []byte) ([]Post, error) {
	posts := []Post{}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != fieldListPost || typ != protowire.BytesType {
			return nil
		}
		p, err := parsePost(v)
		if err != nil {
			return err
		}
		posts = append(posts, p)
		return nil
	})
	return posts, err
}

func appendPost(b []byte, p *Post) []byte {
	b = protowire.AppendTag(b, fieldPostID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.ID))
	b = protowire.AppendTag(b, fieldPostText, protowire.BytesType)
	b = protowire.AppendString(b, p.Text)
	for _, c := range p.Comments {
		b = protowire.AppendTag(b, fieldPostComment, protowire.BytesType)
		b = protowire.AppendBytes(b, appendComment(nil, c))
	}
	return b
}

func appendComment(b []byte, c *Comment) []byte {
	b = protowire.AppendTag(b, fieldCommentText, protowire.BytesType)
	b = protowire.AppendString(b, c.Text)
	for _, r := range c.Replies {
		b = protowire.AppendTag(b, fieldCommentReply, protowire.BytesType)
		b = protowire.AppendBytes(b, appendComment(nil, r))
	}
	return b
}

func parsePost(b []byte) (Post, error) {
	p := Post{Comments: []*Comment{}}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch {
		case num == fieldPostID && typ == protowire.VarintType:
			p.ID = int64(n)
		case num == fieldPostText && typ == protowire.BytesType:
			p.Text = string(v)
		case num == fieldPostComment && typ == protowire.BytesType:
			c, err := parseComment(v)
			if err != nil {
				return err
			}
			p.Comments = append(p.Comments, c)
		}
		return nil
	})
	return p, err
}

func parseComment(b []byte) (*Comment, error) {
	c := &Comment{Replies: []*Comment{}}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch {
		case num == fieldCommentText && typ == protowire.BytesType:
			c.Text = string(v)
		case num == fieldCommentReply && typ == protowire.BytesType:
			r, err := parseComment(v)
			if err != nil {
				return err
			}
			c.Replies = append(c.Replies, r)
		}
		return nil
	})
	return c, err
}

// consumeFields walks the top-level fields of b. Bytes fields are passed
// as v, varints as n; other wire types are skipped.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error) error {
	for len(b) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(b)
		if tagLen < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(tagLen))
		}
		b = b[tagLen:]

		var (
			v   []byte
			n   uint64
			adv int
		)
		switch typ {
		case protowire.VarintType:
			n, adv = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			v, adv = protowire.ConsumeBytes(b)
		default:
			adv = protowire.ConsumeFieldValue(num, typ, b)
		}
		if adv < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(adv))
		}
		b = b[adv:]

		if err := fn(num, typ, v, n); err != nil {
			return err
		}
	}
	return nil
}
