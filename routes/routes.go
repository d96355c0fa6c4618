package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Register wires the HTTP surface: the actuator health endpoint the
// platform probes, plus a catch-all 404 in the platform's error shape.
func Register(app *fiber.App) {
	app.Get("/actuator/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "UP"})
	})

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"timestamp": time.Now().UnixMilli(),
			"status":    fiber.StatusNotFound,
			"error":     "Not Found",
			"message":   "No message available",
			"path":      c.OriginalURL(),
		})
	})
}
