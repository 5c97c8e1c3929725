package review

import (
	"time"

	"github.com/google/uuid"
)

// Review is one user's rating of a tour. Each user reviews a tour at
// most once; the repositories enforce the pair as a unique key.
type Review struct {
	ID        uuid.UUID `json:"id"`
	Review    string    `json:"review"`
	Rating    float64   `json:"rating"`
	TourID    uuid.UUID `json:"tour_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
