package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the app-wide fiber error handler. fiber.Error values keep
// their status and message; anything else is logged and masked as a generic
// SYSTEM_ERROR so internals never reach the voice agent or the console.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"error":   fe.Message,
		})
	}

	log.Printf("[error] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "SYSTEM_ERROR",
		"message": "I'm experiencing a system issue. Please try again in a moment.",
	})
}
