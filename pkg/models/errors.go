package models

import "errors"

var (
	// ErrEmptyPost indicates post text that is empty once whitespace is trimmed.
	ErrEmptyPost = errors.New("post content cannot be empty")

	// ErrEmptyComment indicates comment text that is empty once whitespace is trimmed.
	ErrEmptyComment = errors.New("comment content cannot be empty")

	// ErrTextTooLong indicates text above MaxTextLen bytes.
	ErrTextTooLong = errors.New("text too long")
)
