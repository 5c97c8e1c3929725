package tour

import (
	"context"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/httpx"
	"github.com/trailhead-app/trailhead/internal/query"
)

func newTestCatalog(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryRepository())
}

func createTour(t *testing.T, svc *Service, in CreateInput) Tour {
	t.Helper()
	if in.Duration == 0 {
		in.Duration = 5
	}
	if in.MaxGroupSize == 0 {
		in.MaxGroupSize = 10
	}
	if in.Difficulty == "" {
		in.Difficulty = "easy"
	}
	if in.Price == 0 {
		in.Price = 400
	}
	created, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create %q: %v", in.Name, err)
	}
	return created
}

func assertValidation(t *testing.T, err error) {
	t.Helper()
	appErr, ok := err.(*httpx.Error)
	if !ok || appErr.Kind != httpx.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateDefaultsAndSlug(t *testing.T) {
	svc := newTestCatalog(t)

	created := createTour(t, svc, CreateInput{Name: "The Forest Hiker"})
	if created.Slug != "the-forest-hiker" {
		t.Fatalf("slug = %q", created.Slug)
	}
	if created.RatingsAverage != 4.5 {
		t.Fatalf("default rating = %v, want 4.5", created.RatingsAverage)
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestCatalog(t)
	ctx := context.Background()
	base := CreateInput{Name: "The Forest Hiker", Duration: 5, MaxGroupSize: 10, Difficulty: "easy", Price: 400}

	cases := map[string]func(CreateInput) CreateInput{
		"short name":           func(in CreateInput) CreateInput { in.Name = "Short"; return in },
		"unknown difficulty":   func(in CreateInput) CreateInput { in.Difficulty = "impossible"; return in },
		"zero duration":        func(in CreateInput) CreateInput { in.Duration = 0; return in },
		"zero group size":      func(in CreateInput) CreateInput { in.MaxGroupSize = 0; return in },
		"zero price":           func(in CreateInput) CreateInput { in.Price = 0; return in },
		"discount above price": func(in CreateInput) CreateInput { in.PriceDiscount = 500; return in },
		"rating out of range":  func(in CreateInput) CreateInput { in.RatingsAverage = 5.5; return in },
	}
	for name, mutate := range cases {
		_, err := svc.Create(ctx, mutate(base))
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		assertValidation(t, err)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc := newTestCatalog(t)
	createTour(t, svc, CreateInput{Name: "The Forest Hiker"})

	_, err := svc.Create(context.Background(), CreateInput{
		Name: "The Forest Hiker", Duration: 5, MaxGroupSize: 10, Difficulty: "easy", Price: 400,
	})
	assertValidation(t, err)
}

func TestListFiltersSortsAndProjects(t *testing.T) {
	svc := newTestCatalog(t)
	createTour(t, svc, CreateInput{Name: "The Forest Hiker", Price: 397, Difficulty: "easy"})
	createTour(t, svc, CreateInput{Name: "The Sea Explorer", Price: 497, Difficulty: "medium"})
	createTour(t, svc, CreateInput{Name: "The Snow Adventurer", Price: 997, Difficulty: "difficult"})

	values := url.Values{}
	values.Set("price[lt]", "600")
	values.Set("sort", "-price")
	spec, err := query.Parse(values, QueryOptions())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tours, err := svc.List(context.Background(), spec)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tours) != 2 {
		t.Fatalf("len = %d, want 2", len(tours))
	}
	if tours[0].Name != "The Sea Explorer" || tours[1].Name != "The Forest Hiker" {
		t.Fatalf("unexpected order: %q, %q", tours[0].Name, tours[1].Name)
	}
}

func TestPremiumToursAreHidden(t *testing.T) {
	svc := newTestCatalog(t)
	createTour(t, svc, CreateInput{Name: "The Forest Hiker"})
	hidden := createTour(t, svc, CreateInput{Name: "The Secret Summit", Premium: true})

	spec, _ := query.Parse(url.Values{}, QueryOptions())
	tours, err := svc.List(context.Background(), spec)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tours) != 1 {
		t.Fatalf("len = %d, want 1", len(tours))
	}

	_, err = svc.Get(context.Background(), hidden.ID)
	appErr, ok := err.(*httpx.Error)
	if !ok || appErr.Kind != httpx.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStatsGroupedByDifficulty(t *testing.T) {
	svc := newTestCatalog(t)
	createTour(t, svc, CreateInput{Name: "The Forest Hiker", Difficulty: "easy", Price: 300, RatingsAverage: 4})
	createTour(t, svc, CreateInput{Name: "The Park Camper", Difficulty: "easy", Price: 500, RatingsAverage: 5})
	createTour(t, svc, CreateInput{Name: "The Snow Adventurer", Difficulty: "difficult", Price: 997, RatingsAverage: 4.5})

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("len = %d, want 2", len(stats))
	}
	// Ordered by ascending average price.
	if stats[0].Difficulty != DifficultyEasy || stats[1].Difficulty != DifficultyDifficult {
		t.Fatalf("unexpected order: %v, %v", stats[0].Difficulty, stats[1].Difficulty)
	}
	if stats[0].Count != 2 || stats[0].AvgPrice != 400 {
		t.Fatalf("easy stats = %+v", stats[0])
	}
}

func TestDistancesUnits(t *testing.T) {
	svc := newTestCatalog(t)
	createTour(t, svc, CreateInput{Name: "The Forest Hiker", StartLat: 34.111745, StartLng: -118.113491})

	ctx := context.Background()
	km, err := svc.Distances(ctx, 34.0, -118.0, "km")
	if err != nil {
		t.Fatalf("distances km: %v", err)
	}
	if len(km) != 1 || km[0].Distance <= 0 {
		t.Fatalf("km distances = %+v", km)
	}

	miles, err := svc.Distances(ctx, 34.0, -118.0, "miles")
	if err != nil {
		t.Fatalf("distances miles: %v", err)
	}
	ratio := km[0].Distance / miles[0].Distance
	if math.Abs(ratio-earthRadiusKM/earthRadiusMiles) > 1e-9 {
		t.Fatalf("km/miles ratio = %v", ratio)
	}

	_, err = svc.Distances(ctx, 34.0, -118.0, "furlongs")
	assertValidation(t, err)
}

func TestMonthlyPlanBucketsStartsByMonth(t *testing.T) {
	svc := newTestCatalog(t)
	june := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	july := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	lastYear := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

	createTour(t, svc, CreateInput{Name: "The Forest Hiker", StartDates: []time.Time{june, july}})
	createTour(t, svc, CreateInput{Name: "The Sea Explorer", StartDates: []time.Time{july}})
	createTour(t, svc, CreateInput{Name: "The Snow Adventurer", StartDates: []time.Time{july, lastYear}})
	createTour(t, svc, CreateInput{Name: "The Secret Summit", Premium: true, StartDates: []time.Time{july}})

	plan, err := svc.MonthlyPlan(context.Background(), 2026)
	if err != nil {
		t.Fatalf("monthly plan: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("len = %d, want 2", len(plan))
	}
	// Busiest month first.
	if plan[0].Month != 7 || plan[0].TourStarts != 3 {
		t.Fatalf("july bucket = %+v", plan[0])
	}
	if plan[1].Month != 6 || plan[1].TourStarts != 1 {
		t.Fatalf("june bucket = %+v", plan[1])
	}
	want := []string{"The Forest Hiker", "The Sea Explorer", "The Snow Adventurer"}
	if len(plan[0].Tours) != len(want) {
		t.Fatalf("july tours = %v", plan[0].Tours)
	}
	for i, name := range want {
		if plan[0].Tours[i] != name {
			t.Fatalf("july tours = %v, want %v", plan[0].Tours, want)
		}
	}
}

func TestMonthlyPlanRejectsInvalidYear(t *testing.T) {
	svc := newTestCatalog(t)

	_, err := svc.MonthlyPlan(context.Background(), 0)
	assertValidation(t, err)
}

func TestListNarrowsProjectedFields(t *testing.T) {
	svc := newTestCatalog(t)
	createTour(t, svc, CreateInput{Name: "The Forest Hiker", Price: 397})

	values := url.Values{}
	values.Set("fields", "name,price")
	spec, err := query.Parse(values, QueryOptions())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tours, err := svc.List(context.Background(), spec)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tours) != 1 {
		t.Fatalf("len = %d, want 1", len(tours))
	}
	got := tours[0]
	if got.ID == uuid.Nil {
		t.Fatal("id must survive every projection")
	}
	if got.Name == "" || got.Price == 0 {
		t.Fatalf("included fields were dropped: %+v", got)
	}
	if got.Duration != 0 || got.Summary != "" || got.Difficulty != "" {
		t.Fatalf("excluded fields were kept: %+v", got)
	}
}
