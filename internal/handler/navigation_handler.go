package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/ai-project-hub/internal/navigation"
	"github.com/noah-isme/ai-project-hub/internal/utils"
)

// Navigation serves the sealed navigation registry for the caller's role.
// The optional path query marks the matching entry as active.
func Navigation(registry *navigation.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items := registry.Items(userRoleFromContext(c), c.Query("path"))
		return utils.SendSuccess(c, "navigation retrieved", fiber.Map{"items": items})
	}
}
