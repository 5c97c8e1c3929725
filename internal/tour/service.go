package tour

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/httpx"
	"github.com/trailhead-app/trailhead/internal/query"
	"github.com/trailhead-app/trailhead/internal/store"
)

const (
	minNameLength = 10
	maxNameLength = 40

	earthRadiusKM    = 6371.0
	earthRadiusMiles = 3959.0
)

// Service manages the tour catalog.
type Service struct {
	repo Repository
}

// NewService creates a new tour service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries the fields accepted when creating a tour.
type CreateInput struct {
	Name           string
	Duration       int
	MaxGroupSize   int
	Difficulty     string
	RatingsAverage float64
	Price          float64
	PriceDiscount  float64
	Summary        string
	Description    string
	StartLat       float64
	StartLng       float64
	StartDates     []time.Time
	Premium        bool
}

// Create validates and stores a new tour.
func (s *Service) Create(ctx context.Context, in CreateInput) (Tour, error) {
	if len(in.Name) < minNameLength || len(in.Name) > maxNameLength {
		return Tour{}, httpx.Validation(fmt.Sprintf("a tour name must be between %d and %d characters", minNameLength, maxNameLength))
	}
	difficulty, err := ParseDifficulty(in.Difficulty)
	if err != nil {
		return Tour{}, httpx.Validation(err.Error())
	}
	if in.Duration <= 0 {
		return Tour{}, httpx.Validation("a tour must have a duration")
	}
	if in.MaxGroupSize <= 0 {
		return Tour{}, httpx.Validation("a tour must have a group size")
	}
	if in.Price <= 0 {
		return Tour{}, httpx.Validation("a tour must have a price")
	}
	if in.PriceDiscount >= in.Price && in.PriceDiscount != 0 {
		return Tour{}, httpx.Validation("discount price must be below the regular price")
	}
	rating := in.RatingsAverage
	if rating == 0 {
		rating = 4.5
	}
	if rating < 1 || rating > 5 {
		return Tour{}, httpx.Validation("rating must be between 1 and 5")
	}

	t := Tour{
		ID:             uuid.New(),
		Name:           in.Name,
		Slug:           Slugify(in.Name),
		Duration:       in.Duration,
		MaxGroupSize:   in.MaxGroupSize,
		Difficulty:     difficulty,
		RatingsAverage: rating,
		Price:          in.Price,
		PriceDiscount:  in.PriceDiscount,
		Summary:        in.Summary,
		Description:    in.Description,
		StartLat:       in.StartLat,
		StartLng:       in.StartLng,
		StartDates:     in.StartDates,
		Premium:        in.Premium,
		CreatedAt:      time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, t)
	if errors.Is(err, store.ErrDuplicate) {
		return Tour{}, httpx.Validation("a tour with this name already exists")
	}
	if err != nil {
		return Tour{}, httpx.Internal(err)
	}
	return created, nil
}

// Get fetches one tour by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Tour, error) {
	t, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return Tour{}, httpx.NotFound("no tour found with a matching id")
	}
	if err != nil {
		return Tour{}, httpx.Internal(err)
	}
	return t, nil
}

// List runs the query pipeline over the catalog.
func (s *Service) List(ctx context.Context, spec query.Spec) ([]Tour, error) {
	tours, err := s.repo.Find(ctx, spec)
	if err != nil {
		return nil, httpx.Internal(err)
	}
	return tours, nil
}

// UpdateInput carries partial updates; nil fields are untouched.
type UpdateInput struct {
	Name          *string
	Duration      *int
	MaxGroupSize  *int
	Difficulty    *string
	Price         *float64
	PriceDiscount *float64
	Summary       *string
	Description   *string
	Premium       *bool
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Tour, error) {
	fields := map[string]any{}
	if in.Name != nil {
		if len(*in.Name) < minNameLength || len(*in.Name) > maxNameLength {
			return Tour{}, httpx.Validation(fmt.Sprintf("a tour name must be between %d and %d characters", minNameLength, maxNameLength))
		}
		fields["name"] = *in.Name
		fields["slug"] = Slugify(*in.Name)
	}
	if in.Duration != nil {
		fields["duration"] = *in.Duration
	}
	if in.MaxGroupSize != nil {
		fields["max_group_size"] = *in.MaxGroupSize
	}
	if in.Difficulty != nil {
		difficulty, err := ParseDifficulty(*in.Difficulty)
		if err != nil {
			return Tour{}, httpx.Validation(err.Error())
		}
		fields["difficulty"] = difficulty
	}
	if in.Price != nil {
		fields["price"] = *in.Price
	}
	if in.PriceDiscount != nil {
		fields["price_discount"] = *in.PriceDiscount
	}
	if in.Summary != nil {
		fields["summary"] = *in.Summary
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Premium != nil {
		fields["premium"] = *in.Premium
	}
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}

	t, err := s.repo.UpdateByID(ctx, id, fields)
	if errors.Is(err, store.ErrNotFound) {
		return Tour{}, httpx.NotFound("no tour found with a matching id")
	}
	if errors.Is(err, store.ErrDuplicate) {
		return Tour{}, httpx.Validation("a tour with this name already exists")
	}
	if err != nil {
		return Tour{}, httpx.Internal(err)
	}
	return t, nil
}

// Delete removes a tour.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return httpx.NotFound("no tour found with a matching id")
	}
	if err != nil {
		return httpx.Internal(err)
	}
	return nil
}

// Stats aggregates the catalog per difficulty.
func (s *Service) Stats(ctx context.Context) ([]DifficultyStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, httpx.Internal(err)
	}
	return stats, nil
}

// MonthlyPlan buckets the year's scheduled starts per month.
func (s *Service) MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error) {
	if year < 1 {
		return nil, httpx.Validation("please provide a valid year")
	}
	plan, err := s.repo.MonthlyPlan(ctx, year)
	if err != nil {
		return nil, httpx.Internal(err)
	}
	return plan, nil
}

// Distance is one tour's distance from a reference point.
type Distance struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Distance float64   `json:"distance"`
	Unit     string    `json:"unit"`
}

// Distances computes each tour's distance from the given point. Only
// "km" and "miles" are accepted; any other unit is rejected.
func (s *Service) Distances(ctx context.Context, lat, lng float64, unit string) ([]Distance, error) {
	var radius float64
	switch unit {
	case "km":
		radius = earthRadiusKM
	case "miles":
		radius = earthRadiusMiles
	default:
		return nil, httpx.Validation("unit must be either km or miles")
	}

	tours, err := s.repo.Find(ctx, query.Spec{Page: 1, PageSize: 500})
	if err != nil {
		return nil, httpx.Internal(err)
	}

	distances := make([]Distance, 0, len(tours))
	for _, t := range tours {
		distances = append(distances, Distance{
			ID:       t.ID,
			Name:     t.Name,
			Distance: haversine(lat, lng, t.StartLat, t.StartLng, radius),
			Unit:     unit,
		})
	}
	return distances, nil
}

func haversine(lat1, lng1, lat2, lng2, radius float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * radius * math.Asin(math.Sqrt(a))
}
