package server

import (
	"time"

	"chatboard/pkg/handlers"
	"chatboard/pkg/hub"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Register mounts the board's HTTP and websocket routes.
func Register(app *fiber.App, h *hub.Hub, board *handlers.BoardHandler, maxPerWindow int, window time.Duration) {
	app.Get("/posts", board.List)
	app.Post("/posts", limiter.New(limiter.Config{
		Max:        maxPerWindow,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), board.Create)

	app.Get("/hub/status", board.Status)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		h.HandleClientConn(c)
	}))
}
