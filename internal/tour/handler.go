package tour

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/httpx"
	"github.com/trailhead-app/trailhead/internal/query"
)

// Handler exposes tour endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a tour HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List runs the query pipeline over the catalog.
func (h *Handler) List(c *fiber.Ctx) error {
	return h.list(c, httpx.QueryValues(c))
}

// TopCheap pre-fills the query with the classic top-5 alias before
// listing.
func (h *Handler) TopCheap(c *fiber.Ctx) error {
	values := url.Values{}
	values.Set("limit", "5")
	values.Set("sort", "-ratings_average,price")
	values.Set("fields", "name,price,ratings_average,summary,difficulty")
	return h.list(c, values)
}

func (h *Handler) list(c *fiber.Ctx, values url.Values) error {
	spec, err := query.Parse(values, QueryOptions())
	if err != nil {
		return httpx.Validation(err.Error())
	}
	tours, err := h.service.List(c.UserContext(), spec)
	if err != nil {
		return err
	}
	return httpx.SuccessList(c, len(tours), fiber.Map{"tours": tours})
}

// MonthlyPlan reports how many tours start in each month of a year.
func (h *Handler) MonthlyPlan(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return httpx.Validation("please provide a valid year")
	}
	plan, err := h.service.MonthlyPlan(c.UserContext(), year)
	if err != nil {
		return err
	}
	return httpx.SuccessList(c, len(plan), fiber.Map{"plan": plan})
}

// Stats returns aggregated catalog stats per difficulty.
func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, fiber.Map{"stats": stats})
}

// Distances computes tour distances from a "lat,lng" reference point.
func (h *Handler) Distances(c *fiber.Ctx) error {
	lat, lng, err := parseLatLng(c.Params("latlng"))
	if err != nil {
		return err
	}
	distances, err := h.service.Distances(c.UserContext(), lat, lng, c.Params("unit"))
	if err != nil {
		return err
	}
	return httpx.SuccessList(c, len(distances), fiber.Map{"distances": distances})
}

type createRequest struct {
	Name           string      `json:"name"`
	Duration       int         `json:"duration"`
	MaxGroupSize   int         `json:"max_group_size"`
	Difficulty     string      `json:"difficulty"`
	RatingsAverage float64     `json:"ratings_average"`
	Price          float64     `json:"price"`
	PriceDiscount  float64     `json:"price_discount"`
	Summary        string      `json:"summary"`
	Description    string      `json:"description"`
	StartLat       float64     `json:"start_lat"`
	StartLng       float64     `json:"start_lng"`
	StartDates     []time.Time `json:"start_dates"`
	Premium        bool        `json:"premium"`
}

// Create adds a tour to the catalog.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	t, err := h.service.Create(c.UserContext(), CreateInput{
		Name:           req.Name,
		Duration:       req.Duration,
		MaxGroupSize:   req.MaxGroupSize,
		Difficulty:     req.Difficulty,
		RatingsAverage: req.RatingsAverage,
		Price:          req.Price,
		PriceDiscount:  req.PriceDiscount,
		Summary:        req.Summary,
		Description:    req.Description,
		StartLat:       req.StartLat,
		StartLng:       req.StartLng,
		StartDates:     req.StartDates,
		Premium:        req.Premium,
	})
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusCreated, fiber.Map{"tour": t})
}

// Get fetches one tour by id.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, fiber.Map{"tour": t})
}

type updateRequest struct {
	Name          *string  `json:"name"`
	Duration      *int     `json:"duration"`
	MaxGroupSize  *int     `json:"max_group_size"`
	Difficulty    *string  `json:"difficulty"`
	Price         *float64 `json:"price"`
	PriceDiscount *float64 `json:"price_discount"`
	Summary       *string  `json:"summary"`
	Description   *string  `json:"description"`
	Premium       *bool    `json:"premium"`
}

// Update applies a partial update to a tour.
func (h *Handler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	t, err := h.service.Update(c.UserContext(), id, UpdateInput{
		Name:          req.Name,
		Duration:      req.Duration,
		MaxGroupSize:  req.MaxGroupSize,
		Difficulty:    req.Difficulty,
		Price:         req.Price,
		PriceDiscount: req.PriceDiscount,
		Summary:       req.Summary,
		Description:   req.Description,
		Premium:       req.Premium,
	})
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, fiber.Map{"tour": t})
}

// Delete removes a tour from the catalog.
func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return httpx.NoContent(c)
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, httpx.Validation("invalid tour id")
	}
	return id, nil
}

func parseLatLng(raw string) (float64, float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, httpx.Validation("please provide latitude and longitude as lat,lng")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, httpx.Validation("please provide latitude and longitude as lat,lng")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, httpx.Validation("please provide latitude and longitude as lat,lng")
	}
	return lat, lng, nil
}
