package envelope

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Push-channel event names.
const (
	EventCreatePost = "create_post"
	EventNewPost    = "new_post"
	EventUserCount  = "user_count"
	EventPing       = "ping"
	EventPong       = "pong"
	EventError      = "error"
)

type Envelope struct {
	ID     string          `json:"id"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
	Origin string          `json:"origin,omitempty"`
	Error  *ErrorPayload   `json:"error,omitempty"`
	Time   int64           `json:"ts"`

	// ConnID is set by the hub for frames read from a client connection.
	ConnID string `json:"-"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func New(event string) Envelope {
	return Envelope{
		ID:    uuid.NewString(),
		Event: event,
		Time:  time.Now().UnixMilli(),
	}
}

func NewEvent(event string, data any) (Envelope, error) {
	e := New(event)
	raw, err := json.Marshal(data)
	if err != nil {
		return e, err
	}
	e.Data = raw
	return e, nil
}

// NewError answers original with "<event>.error".
func NewError(original Envelope, code int, message string) Envelope {
	e := New(original.Event + ".error")
	e.Error = &ErrorPayload{Code: code, Message: message}
	return e
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}

func ParseData[T any](e Envelope) (T, error) {
	var v T
	err := json.Unmarshal(e.Data, &v)
	return v, err
}
