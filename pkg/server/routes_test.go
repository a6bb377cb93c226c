package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatboard/pkg/board"
	"chatboard/pkg/handlers"
	"chatboard/pkg/hub"
	"chatboard/pkg/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, limit int) (*fiber.App, *board.Feed) {
	t.Helper()
	log := zap.NewNop()
	h := hub.New(log)
	feed := board.NewFeed(0)
	b := handlers.NewBoard(h, feed, log, handlers.WithClock(func() time.Time { return time.UnixMilli(4242) }))
	b.RegisterActions()

	app := NewApp("test", "*", log)
	Register(app, h, b, limit, time.Minute)
	return app, feed
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, 10)
	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	if status != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Fatalf("health: %d %s", status, body)
	}
}

func TestCreatePost_ValidatesAndPrepends(t *testing.T) {
	app, feed := newTestApp(t, 10)

	status, _ := do(t, app, postJSON(`{"text":"   "}`))
	if status != http.StatusBadRequest {
		t.Fatalf("blank post status = %d, want 400", status)
	}
	status, _ = do(t, app, postJSON(`{"text":"`+strings.Repeat("x", models.MaxTextLen+1)+`"}`))
	if status != http.StatusBadRequest {
		t.Fatalf("oversized post status = %d, want 400", status)
	}
	if feed.Len() != 0 {
		t.Fatalf("rejected posts must not reach the feed")
	}

	status, body := do(t, app, postJSON(`{"text":"first"}`))
	if status != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", status, body)
	}
	var created models.Post
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != 4242 || created.Comments == nil {
		t.Fatalf("missing id must be stamped and comments normalized: %s", body)
	}

	do(t, app, postJSON(`{"id":9000,"text":"second"}`))
	posts := feed.Posts()
	if len(posts) != 2 || posts[0].ID != 9000 {
		t.Fatalf("newest post must be first, got %#v", posts)
	}
}

func TestListPosts_Search(t *testing.T) {
	app, feed := newTestApp(t, 10)
	feed.Prepend(models.Post{ID: 1, Text: "Gophers unite"})
	feed.Prepend(models.Post{ID: 2, Text: "other", Comments: []*models.Comment{{Text: "more GOPHERS"}}})
	feed.Prepend(models.Post{ID: 3, Text: "nothing"})

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/posts?q=gopher", nil))
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	var posts []models.Post
	if err := json.Unmarshal(body, &posts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != 2 || posts[1].ID != 1 {
		t.Fatalf("unexpected search result %s", body)
	}
}

func TestCreatePost_RateLimited(t *testing.T) {
	app, _ := newTestApp(t, 2)
	for i := 0; i < 2; i++ {
		if status, _ := do(t, app, postJSON(`{"text":"ok"}`)); status != http.StatusCreated {
			t.Fatalf("request %d status = %d", i, status)
		}
	}
	if status, _ := do(t, app, postJSON(`{"text":"too many"}`)); status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
}

func TestStatusAndWebsocketGuard(t *testing.T) {
	app, _ := newTestApp(t, 10)
	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/hub/status", nil))
	if status != http.StatusOK || !strings.Contains(string(body), `"clients":0`) {
		t.Fatalf("status: %d %s", status, body)
	}
	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if status != http.StatusUpgradeRequired {
		t.Fatalf("plain GET /ws = %d, want 426", status)
	}
}
