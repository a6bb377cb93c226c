package envelope

import (
	"strings"
	"testing"
)

type payload struct {
	Text string `json:"text"`
}

func TestNewEvent_ParseData(t *testing.T) {
	e, err := NewEvent(EventNewPost, payload{Text: "hi"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if e.ID == "" || e.Time == 0 {
		t.Fatalf("id and timestamp must be set: %#v", e)
	}

	raw, err := e.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	p, err := ParseData[payload](decoded)
	if err != nil || p.Text != "hi" || decoded.Event != EventNewPost {
		t.Fatalf("unexpected decode %#v %#v err=%v", decoded, p, err)
	}
}

func TestNewError_SuffixesEvent(t *testing.T) {
	req := New(EventCreatePost)
	e := NewError(req, 400, "bad")
	if e.Event != "create_post.error" || e.Error == nil || e.Error.Code != 400 {
		t.Fatalf("unexpected error envelope %#v", e)
	}
}

func TestMarshal_OmitsConnID(t *testing.T) {
	e := New(EventPing)
	e.ConnID = "secret-conn"
	raw, _ := e.Marshal()
	if strings.Contains(string(raw), "secret-conn") {
		t.Fatalf("conn id leaked on the wire: %s", raw)
	}
}
