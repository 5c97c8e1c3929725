package identity

import "github.com/gofiber/fiber/v2"

const currentUserKey = "current_user"

// StoreCurrent attaches the resolved identity to the request, done by
// the access gate after authentication succeeds.
func StoreCurrent(c *fiber.Ctx, user User) {
	c.Locals(currentUserKey, user)
}

// Current returns the identity attached to the request, if any.
func Current(c *fiber.Ctx) (User, bool) {
	user, ok := c.Locals(currentUserKey).(User)
	return user, ok
}
