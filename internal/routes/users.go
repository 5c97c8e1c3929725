package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trailhead-app/trailhead/internal/identity"
	"github.com/trailhead-app/trailhead/internal/middleware"
)

// RegisterUserRoutes wires the auth and user management endpoints. The
// credential endpoints are rate limited; everything below the gate
// requires a bearer token, and the administrative block additionally
// requires the administrator role.
func RegisterUserRoutes(r fiber.Router, h *identity.Handler, authGate, limiter fiber.Handler) {
	group := r.Group("/users")

	group.Post("/signup", limiter, h.Signup)
	group.Post("/login", limiter, h.Login)
	group.Post("/forgotPassword", limiter, h.ForgotPassword)
	group.Patch("/resetPassword/:secret", h.ResetPassword)

	group.Patch("/updateMyPassword", authGate, h.UpdateMyPassword)
	group.Get("/me", authGate, h.Me)
	group.Patch("/me", authGate, h.UpdateMe)
	group.Delete("/me", authGate, h.DeleteMe)

	admin := group.Group("", authGate, middleware.RequireRoles(identity.RoleAdministrator))
	admin.Get("/", h.List)
	admin.Get("/:id", h.Get)
	admin.Patch("/:id", h.Update)
	admin.Delete("/:id", h.Delete)
}
