package review

import (
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/query"
	"github.com/trailhead-app/trailhead/internal/store"
)

type memoryRepository struct {
	*store.Memory[Review]
}

// NewMemoryRepository builds an in-memory review store for development
// mode and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{Memory: store.NewMemory(reviewAccessor())}
}

func reviewAccessor() store.Accessor[Review] {
	return store.Accessor[Review]{
		ID: func(r Review) uuid.UUID { return r.ID },
		Field: func(r Review, field string) (any, bool) {
			switch field {
			case "rating":
				return r.Rating, true
			case "tour_id":
				return r.TourID.String(), true
			case "user_id":
				return r.UserID.String(), true
			case "created_at":
				return r.CreatedAt, true
			default:
				return nil, false
			}
		},
		Apply:   applyReviewFields,
		Project: projectReview,
		// One review per (tour, user) pair.
		Unique: func(r Review) string { return r.TourID.String() + ":" + r.UserID.String() },
	}
}

func applyReviewFields(r Review, fields map[string]any) Review {
	for field, value := range fields {
		switch field {
		case "review":
			r.Review, _ = value.(string)
		case "rating":
			r.Rating, _ = value.(float64)
		}
	}
	return r
}

// projectReview zeroes the fields a projected SQL select would not scan.
func projectReview(r Review, p query.Projection) Review {
	if !p.Keeps("review") {
		r.Review = ""
	}
	if !p.Keeps("rating") {
		r.Rating = 0
	}
	if !p.Keeps("tour_id") {
		r.TourID = uuid.Nil
	}
	if !p.Keeps("user_id") {
		r.UserID = uuid.Nil
	}
	if !p.Keeps("created_at") {
		r.CreatedAt = time.Time{}
	}
	return r
}
