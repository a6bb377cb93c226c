package models

import (
	"errors"
	"reflect"
	"testing"
)

func TestPostsCodec_NestedTree(t *testing.T) {
	posts := []Post{
		{
			ID:   1700000000002,
			Text: "second",
			Comments: []*Comment{
				{Text: "a", Replies: []*Comment{
					{Text: "a.1", Replies: []*Comment{
						{Text: "a.1.1", Replies: []*Comment{}},
					}},
				}},
				{Text: "b", Replies: []*Comment{}},
			},
		},
		{ID: 1700000000001, Text: "first", Comments: []*Comment{}},
	}

	got, err := UnmarshalPosts(MarshalPosts(posts))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, posts) {
		t.Fatalf("decoded tree differs:\ngot  %#v\nwant %#v", got, posts)
	}
}

func TestUnmarshalPosts_EmptyInput(t *testing.T) {
	got, err := UnmarshalPosts(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty, non-nil list, got %#v", got)
	}
}

func TestUnmarshalPosts_Truncated(t *testing.T) {
	b := MarshalPosts([]Post{{ID: 7, Text: "truncate me", Comments: []*Comment{}}})
	_, err := UnmarshalPosts(b[:len(b)-3])
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
