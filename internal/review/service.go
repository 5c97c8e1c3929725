package review

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/httpx"
	"github.com/trailhead-app/trailhead/internal/query"
	"github.com/trailhead-app/trailhead/internal/store"
	"github.com/trailhead-app/trailhead/internal/tour"
)

// Service manages tour reviews. Reviews are parent-referenced: every
// review belongs to an existing tour and the authenticated author.
type Service struct {
	repo  Repository
	tours tour.Repository
}

// NewService creates the review service.
func NewService(repo Repository, tours tour.Repository) *Service {
	return &Service{repo: repo, tours: tours}
}

// CreateInput carries the fields accepted when posting a review. The
// author is taken from the authenticated identity, never the body.
type CreateInput struct {
	TourID uuid.UUID
	UserID uuid.UUID
	Rating float64
	Review string
}

// Create validates and stores a review for an existing tour.
func (s *Service) Create(ctx context.Context, in CreateInput) (Review, error) {
	if strings.TrimSpace(in.Review) == "" {
		return Review{}, httpx.Validation("a review cannot be empty")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return Review{}, httpx.Validation("rating must be between 1 and 5")
	}

	if _, err := s.tours.FindByID(ctx, in.TourID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Review{}, httpx.NotFound("no tour found with a matching id")
		}
		return Review{}, httpx.Internal(err)
	}

	rec := Review{
		ID:        uuid.New(),
		Review:    strings.TrimSpace(in.Review),
		Rating:    in.Rating,
		TourID:    in.TourID,
		UserID:    in.UserID,
		CreatedAt: time.Now().UTC(),
	}
	created, err := s.repo.Create(ctx, rec)
	if errors.Is(err, store.ErrDuplicate) {
		return Review{}, httpx.Validation("you have already reviewed this tour")
	}
	if err != nil {
		return Review{}, httpx.Internal(err)
	}
	return created, nil
}

// List runs the query pipeline over the reviews.
func (s *Service) List(ctx context.Context, spec query.Spec) ([]Review, error) {
	reviews, err := s.repo.Find(ctx, spec)
	if err != nil {
		return nil, httpx.Internal(err)
	}
	return reviews, nil
}
