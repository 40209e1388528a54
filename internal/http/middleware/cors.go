package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// CORS allows browser clients from origins to call the share API. An empty
// list allows any origin.
func CORS(origins []string) fiber.Handler {
	allowAny := len(origins) == 0

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		switch {
		case allowAny:
			c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		case origin != "" && lo.ContainsBy(origins, func(o string) bool { return strings.EqualFold(o, origin) }):
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
			c.Vary(fiber.HeaderOrigin)
		}
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Origin, Content-Type, Accept, "+RequestIDHeader)
		c.Set(fiber.HeaderAccessControlExposeHeaders, "Content-Length, Content-Type, "+RequestIDHeader+", X-RateLimit-Remaining")
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
