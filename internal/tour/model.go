package tour

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Difficulty is the closed set of tour difficulty grades.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

// ParseDifficulty validates a raw difficulty value.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch Difficulty(raw) {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
		return Difficulty(raw), nil
	default:
		return "", fmt.Errorf("difficulty must be one of easy, medium or difficult, got %q", raw)
	}
}

// Tour is one catalog entry.
type Tour struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	Duration        int        `json:"duration"`
	MaxGroupSize    int        `json:"max_group_size"`
	Difficulty      Difficulty `json:"difficulty"`
	RatingsAverage  float64    `json:"ratings_average"`
	RatingsQuantity int        `json:"ratings_quantity"`
	Price           float64    `json:"price"`
	PriceDiscount   float64    `json:"price_discount,omitempty"`
	Summary         string     `json:"summary"`
	Description     string     `json:"description,omitempty"`
	StartLat        float64    `json:"start_lat"`
	StartLng        float64    `json:"start_lng"`

	// StartDates are the scheduled departures, feeding the monthly
	// plan aggregation.
	StartDates []time.Time `json:"start_dates,omitempty"`

	// Premium tours are hidden from default listings; the repository
	// pre-filter keeps them out unless explicitly requested.
	Premium   bool      `json:"premium,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Slugify derives the URL slug from a tour name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	return slug
}
