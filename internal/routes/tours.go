package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trailhead-app/trailhead/internal/identity"
	"github.com/trailhead-app/trailhead/internal/middleware"
	"github.com/trailhead-app/trailhead/internal/tour"
)

// RegisterTourRoutes wires the catalog endpoints. Reads are public;
// writes are role gated.
func RegisterTourRoutes(r fiber.Router, h *tour.Handler, authGate fiber.Handler) {
	group := r.Group("/tours")

	group.Get("/top-5-cheap", h.TopCheap)
	group.Get("/stats", h.Stats)
	group.Get("/monthly-plan/:year", authGate,
		middleware.RequireRoles(identity.RoleGuide, identity.RoleLeadGuide, identity.RoleAdministrator),
		h.MonthlyPlan)
	group.Get("/distances/:latlng/unit/:unit", h.Distances)
	group.Get("/", h.List)

	group.Post("/", authGate,
		middleware.RequireRoles(identity.RoleGuide, identity.RoleLeadGuide, identity.RoleAdministrator),
		h.Create)

	group.Get("/:id", h.Get)

	editors := middleware.RequireRoles(identity.RoleLeadGuide, identity.RoleAdministrator)
	group.Patch("/:id", authGate, editors, h.Update)
	group.Delete("/:id", authGate, editors, h.Delete)
}
