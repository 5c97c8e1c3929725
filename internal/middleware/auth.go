package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/trailhead-app/trailhead/internal/httpx"
	"github.com/trailhead-app/trailhead/internal/identity"
	"github.com/trailhead-app/trailhead/internal/store"
	"github.com/trailhead-app/trailhead/internal/token"
)

// RequireAuth authenticates the bearer token, loads the identity and
// rejects tokens issued before the identity's credentials were rotated.
// The resolved identity is attached to the request for downstream
// handlers.
func RequireAuth(tokens *token.Service, users identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			return httpx.Authentication("you are not logged in, please log in to get access")
		}
		raw := strings.TrimSpace(header[len("Bearer "):])

		subject, issuedAt, err := tokens.Verify(raw)
		if err != nil {
			return httpx.Authentication("token is invalid or has expired")
		}

		user, err := users.FindByID(c.UserContext(), subject)
		if errors.Is(err, store.ErrNotFound) {
			return httpx.Authentication("the user belonging to this token no longer exists")
		}
		if err != nil {
			return httpx.Internal(err)
		}

		// Token second precision: a rotation strictly after the issue
		// second makes the token stale.
		if user.PasswordChangedAt != nil && user.PasswordChangedAt.Unix() > issuedAt.Unix() {
			return httpx.Authentication("password was changed recently, please log in again")
		}

		identity.StoreCurrent(c, user)
		return c.Next()
	}
}

// RequireRoles allows only the given roles through. It must run after
// RequireAuth.
func RequireRoles(roles ...identity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := identity.Current(c)
		if !ok {
			return httpx.Authentication("you are not logged in, please log in to get access")
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		return httpx.Authorization("you do not have permission to perform this action")
	}
}
