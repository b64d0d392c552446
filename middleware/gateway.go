package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GatewayAuthMiddleware admits only requests carrying the service token the
// Gateway forwards, as "Bearer <token>" or bare.
func GatewayAuthMiddleware(serviceToken string) fiber.Handler {
	if serviceToken == "" {
		log.Fatal("❌ SERVICE_TOKEN is not set, refusing to start without gateway auth")
	}
	want := []byte(serviceToken)

	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			log.Printf("🚫 [GATEWAY_AUTH] %s %s without service token", c.Method(), c.Path())
			return gatewayReject(c, "gateway authentication token missing")
		}

		token, _ := strings.CutPrefix(header, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			log.Printf("❌ [GATEWAY_AUTH] %s %s with wrong service token", c.Method(), c.Path())
			return gatewayReject(c, "invalid gateway authentication token")
		}
		return c.Next()
	}
}

func gatewayReject(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
}
