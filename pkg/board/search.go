package board

import (
	"strings"

	"chatboard/pkg/models"
)

// Matches reports whether the post text or any top-level comment text
// contains query, ignoring case. Replies below the top level are not
// searched.
func Matches(p models.Post, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(p.Text), q) {
		return true
	}
	for _, c := range p.Comments {
		if strings.Contains(strings.ToLower(c.Text), q) {
			return true
		}
	}
	return false
}
