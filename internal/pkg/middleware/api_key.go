package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
)

// AdminAPIKeyMiddleware guards the admin read/retry API. The expected key is
// configured as a SHA-256 hex digest (ADMIN_API_KEY_HASH) so the plain key
// never sits in the environment of the running service.
func AdminAPIKeyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := strings.ToLower(strings.TrimSpace(env.GetEnv("ADMIN_API_KEY_HASH", "")))
		if expected == "" {
			log.Print("admin api key middleware: ADMIN_API_KEY_HASH not configured")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "admin_api_disabled"})
		}

		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		if !hmac.Equal([]byte(HashAPIKey(apiKey)), []byte(expected)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}

		return c.Next()
	}
}

// HashAPIKey returns the hex SHA-256 digest of a raw API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
