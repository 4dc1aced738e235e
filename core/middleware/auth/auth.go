package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// HeaderName is the header carrying the API key.
const HeaderName = "X-API-Key"

// Config holds the auth middleware configuration.
type Config struct {
	// ApiKey is the expected key. An empty key disables authentication.
	ApiKey string
	// PublicPaths are served without a key.
	PublicPaths []string
}

// New returns a middleware rejecting requests without a valid API key.
// The key is read from X-API-Key or from an "Authorization: Bearer" header.
func New(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.ApiKey == "" || isPublicPath(c.Path(), cfg.PublicPaths) {
			return c.Next()
		}

		key := extractAPIKey(c)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(cfg.ApiKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or missing API key",
			})
		}
		return c.Next()
	}
}

func isPublicPath(path string, public []string) bool {
	for _, p := range public {
		if path == p {
			return true
		}
	}
	return false
}

func extractAPIKey(c *fiber.Ctx) string {
	if key := c.Get(HeaderName); key != "" {
		return key
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
