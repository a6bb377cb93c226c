package board

import "chatboard/pkg/models"

// InsertReply returns a copy of comments in which leaf is appended to the
// replies of parent. Nodes are compared by pointer. Nodes off the path to
// parent are shared with the input, never copied or modified. The bool
// reports whether parent was found; when it is false the input is
// returned as is.
func InsertReply(comments []*models.Comment, parent, leaf *models.Comment) ([]*models.Comment, bool) {
	for i, c := range comments {
		var rebuilt *models.Comment
		if c == parent {
			rebuilt = &models.Comment{Text: c.Text, Replies: appendComment(c.Replies, leaf)}
		} else if replies, ok := InsertReply(c.Replies, parent, leaf); ok {
			rebuilt = &models.Comment{Text: c.Text, Replies: replies}
		} else {
			continue
		}

		out := make([]*models.Comment, len(comments))
		copy(out, comments)
		out[i] = rebuilt
		return out, true
	}
	return comments, false
}

// appendComment never writes into the backing array of in.
func appendComment(in []*models.Comment, c *models.Comment) []*models.Comment {
	out := make([]*models.Comment, len(in), len(in)+1)
	copy(out, in)
	return append(out, c)
}
