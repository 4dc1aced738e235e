package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// HeaderName is the response header carrying the request ID.
	HeaderName = "X-Ray-ID"
	// LocalsKey is the fiber.Ctx locals key holding the request ID.
	LocalsKey = "ray_id"
)

// New returns a middleware assigning every request a ray ID. An ID sent by the
// client in X-Ray-ID is kept; otherwise a new UUID is generated.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(LocalsKey, id)
		c.Set(HeaderName, id)
		return c.Next()
	}
}

// FromContext returns the ray ID of the request, or "" when none was assigned.
func FromContext(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalsKey).(string)
	return id
}
