package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trailhead-app/trailhead/internal/review"
)

// RegisterReviewRoutes wires the review endpoints nested under a tour.
// Both reading and writing reviews require a logged-in user.
func RegisterReviewRoutes(r fiber.Router, h *review.Handler, authGate fiber.Handler) {
	group := r.Group("/tours/:tourId/reviews", authGate)

	group.Post("/", h.Create)
	group.Get("/", h.List)
}
