package tour

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/query"
	"github.com/trailhead-app/trailhead/internal/store"
)

type memoryRepository struct {
	*store.Memory[Tour]
}

// NewMemoryRepository builds an in-memory tour store for development
// mode and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{Memory: store.NewMemory(tourAccessor())}
}

func tourAccessor() store.Accessor[Tour] {
	return store.Accessor[Tour]{
		ID: func(t Tour) uuid.UUID { return t.ID },
		Field: func(t Tour, field string) (any, bool) {
			switch field {
			case "name":
				return t.Name, true
			case "duration":
				return t.Duration, true
			case "max_group_size":
				return t.MaxGroupSize, true
			case "difficulty":
				return string(t.Difficulty), true
			case "ratings_average":
				return t.RatingsAverage, true
			case "ratings_quantity":
				return t.RatingsQuantity, true
			case "price":
				return t.Price, true
			case "created_at":
				return t.CreatedAt, true
			default:
				return nil, false
			}
		},
		Apply:   applyTourFields,
		Project: projectTour,
		Unique:  func(t Tour) string { return t.Name },
		Visible: func(t Tour) bool { return !t.Premium },
	}
}

func applyTourFields(t Tour, fields map[string]any) Tour {
	for field, value := range fields {
		switch field {
		case "name":
			t.Name, _ = value.(string)
		case "slug":
			t.Slug, _ = value.(string)
		case "duration":
			t.Duration, _ = value.(int)
		case "max_group_size":
			t.MaxGroupSize, _ = value.(int)
		case "difficulty":
			if d, ok := value.(Difficulty); ok {
				t.Difficulty = d
			}
		case "ratings_average":
			t.RatingsAverage, _ = value.(float64)
		case "price":
			t.Price, _ = value.(float64)
		case "price_discount":
			t.PriceDiscount, _ = value.(float64)
		case "summary":
			t.Summary, _ = value.(string)
		case "description":
			t.Description, _ = value.(string)
		case "start_lat":
			t.StartLat, _ = value.(float64)
		case "start_lng":
			t.StartLng, _ = value.(float64)
		case "start_dates":
			t.StartDates, _ = value.([]time.Time)
		case "premium":
			t.Premium, _ = value.(bool)
		}
	}
	return t
}

// projectTour zeroes the fields a projected SQL select would not scan.
func projectTour(t Tour, p query.Projection) Tour {
	if !p.Keeps("name") {
		t.Name = ""
	}
	if !p.Keeps("slug") {
		t.Slug = ""
	}
	if !p.Keeps("duration") {
		t.Duration = 0
	}
	if !p.Keeps("max_group_size") {
		t.MaxGroupSize = 0
	}
	if !p.Keeps("difficulty") {
		t.Difficulty = ""
	}
	if !p.Keeps("ratings_average") {
		t.RatingsAverage = 0
	}
	if !p.Keeps("ratings_quantity") {
		t.RatingsQuantity = 0
	}
	if !p.Keeps("price") {
		t.Price = 0
	}
	if !p.Keeps("price_discount") {
		t.PriceDiscount = 0
	}
	if !p.Keeps("summary") {
		t.Summary = ""
	}
	if !p.Keeps("description") {
		t.Description = ""
	}
	if !p.Keeps("start_lat") {
		t.StartLat = 0
	}
	if !p.Keeps("start_lng") {
		t.StartLng = 0
	}
	if !p.Keeps("start_dates") {
		t.StartDates = nil
	}
	if !p.Keeps("created_at") {
		t.CreatedAt = time.Time{}
	}
	return t
}

// Stats aggregates the visible catalog per difficulty, cheapest bucket
// first.
func (r *memoryRepository) Stats(_ context.Context) ([]DifficultyStats, error) {
	buckets := map[Difficulty]*DifficultyStats{}
	for _, t := range r.All() {
		if t.Premium {
			continue
		}
		s, ok := buckets[t.Difficulty]
		if !ok {
			s = &DifficultyStats{Difficulty: t.Difficulty, MinPrice: t.Price, MaxPrice: t.Price}
			buckets[t.Difficulty] = s
		}
		s.Count++
		s.AvgRating += t.RatingsAverage
		s.AvgPrice += t.Price
		if t.Price < s.MinPrice {
			s.MinPrice = t.Price
		}
		if t.Price > s.MaxPrice {
			s.MaxPrice = t.Price
		}
	}

	stats := make([]DifficultyStats, 0, len(buckets))
	for _, s := range buckets {
		s.AvgRating /= float64(s.Count)
		s.AvgPrice /= float64(s.Count)
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].AvgPrice < stats[j].AvgPrice })
	return stats, nil
}

// MonthlyPlan counts scheduled starts per month of the given year,
// busiest month first.
func (r *memoryRepository) MonthlyPlan(_ context.Context, year int) ([]MonthlyPlanEntry, error) {
	buckets := map[int]*MonthlyPlanEntry{}
	for _, t := range r.All() {
		if t.Premium {
			continue
		}
		for _, starts := range t.StartDates {
			if starts.Year() != year {
				continue
			}
			month := int(starts.Month())
			e, ok := buckets[month]
			if !ok {
				e = &MonthlyPlanEntry{Month: month}
				buckets[month] = e
			}
			e.TourStarts++
			e.Tours = append(e.Tours, t.Name)
		}
	}

	plan := make([]MonthlyPlanEntry, 0, len(buckets))
	for _, e := range buckets {
		sort.Strings(e.Tours)
		plan = append(plan, *e)
	}
	sort.Slice(plan, func(i, j int) bool {
		if plan[i].TourStarts != plan[j].TourStarts {
			return plan[i].TourStarts > plan[j].TourStarts
		}
		return plan[i].Month < plan[j].Month
	})
	return plan, nil
}
