package server

import (
	"chatboard/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

// NewApp returns a fiber app with compression, CORS, request logging and
// a /health endpoint.
func NewApp(name, corsOrigins string, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		ReduceMemoryUsage:     true,
		DisableStartupMessage: true,
	})

	app.Use(middleware.Logging(log))
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(cors.New(middleware.CORSConfig(corsOrigins)))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": name})
	})

	return app
}
