package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestRateLimitPerUser(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-User"); id == "1" {
			c.Locals("user_id", uint(1))
		} else {
			c.Locals("user_id", uint(2))
		}
		return c.Next()
	})
	app.Post("/suggest", RateLimit("suggest", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/suggest", nil)
		req.Header.Set("X-User", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusOK, call("1"))
	require.Equal(t, fiber.StatusOK, call("1"))
	require.Equal(t, fiber.StatusTooManyRequests, call("1"))
	require.Equal(t, fiber.StatusOK, call("2"))
}
