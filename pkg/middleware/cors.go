package middleware

import (
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORSConfig allows the given comma-separated origins.
func CORSConfig(origins string) cors.Config {
	return cors.Config{
		AllowOrigins: origins,
		AllowMethods: "POST,GET,OPTIONS",
		AllowHeaders: "Content-Type,Cache-Control,Pragma",
	}
}
