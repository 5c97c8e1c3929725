package review

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/httpx"
	"github.com/trailhead-app/trailhead/internal/identity"
	"github.com/trailhead-app/trailhead/internal/query"
)

// Handler exposes the review endpoints, nested under a tour.
type Handler struct {
	service *Service
}

// NewHandler constructs the review HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Review string  `json:"review"`
	Rating float64 `json:"rating"`
}

// Create posts a review on the tour named in the route, authored by the
// authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	tourID, err := parseTourID(c)
	if err != nil {
		return err
	}
	user, ok := identity.Current(c)
	if !ok {
		return httpx.Authentication("you are not logged in")
	}

	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	rec, err := h.service.Create(c.UserContext(), CreateInput{
		TourID: tourID,
		UserID: user.ID,
		Rating: req.Rating,
		Review: req.Review,
	})
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusCreated, fiber.Map{"review": rec})
}

// List runs the query pipeline over the tour's reviews. The tour filter
// comes from the route and is pinned before client filters parse.
func (h *Handler) List(c *fiber.Ctx) error {
	tourID, err := parseTourID(c)
	if err != nil {
		return err
	}
	values := httpx.QueryValues(c)
	values.Set("tour_id", tourID.String())

	spec, err := query.Parse(values, QueryOptions())
	if err != nil {
		return httpx.Validation(err.Error())
	}
	reviews, err := h.service.List(c.UserContext(), spec)
	if err != nil {
		return err
	}
	return httpx.SuccessList(c, len(reviews), fiber.Map{"reviews": reviews})
}

func parseTourID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("tourId"))
	if err != nil {
		return uuid.Nil, httpx.Validation("invalid tour id")
	}
	return id, nil
}
