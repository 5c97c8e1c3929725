package tour

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trailhead-app/trailhead/internal/query"
	"github.com/trailhead-app/trailhead/internal/store"
)

// DifficultyStats is one aggregation bucket of the stats endpoint.
type DifficultyStats struct {
	Difficulty Difficulty `json:"difficulty"`
	Count      int        `json:"count"`
	AvgRating  float64    `json:"avg_rating"`
	AvgPrice   float64    `json:"avg_price"`
	MinPrice   float64    `json:"min_price"`
	MaxPrice   float64    `json:"max_price"`
}

// MonthlyPlanEntry is one month's bucket of scheduled tour starts.
type MonthlyPlanEntry struct {
	Month      int      `json:"month"`
	TourStarts int      `json:"tour_starts"`
	Tours      []string `json:"tours"`
}

// Repository persists tours.
type Repository interface {
	store.Repository[Tour]
	Stats(ctx context.Context) ([]DifficultyStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error)
}

// QueryOptions is the pipeline configuration for tour list endpoints.
func QueryOptions() query.Options {
	return query.Options{
		Filterable: []string{
			"name", "duration", "max_group_size", "difficulty",
			"ratings_average", "ratings_quantity", "price", "created_at",
		},
	}
}

var sqlBuilder = query.SQLBuilder{
	Table: "tours",
	Columns: []query.Column{
		{Field: "id", Name: "id"},
		{Field: "name", Name: "name"},
		{Field: "slug", Name: "slug"},
		{Field: "duration", Name: "duration"},
		{Field: "max_group_size", Name: "max_group_size"},
		{Field: "difficulty", Name: "difficulty"},
		{Field: "ratings_average", Name: "ratings_average"},
		{Field: "ratings_quantity", Name: "ratings_quantity"},
		{Field: "price", Name: "price"},
		{Field: "price_discount", Name: "price_discount"},
		{Field: "summary", Name: "summary"},
		{Field: "description", Name: "description"},
		{Field: "start_lat", Name: "start_lat"},
		{Field: "start_lng", Name: "start_lng"},
		{Field: "start_dates", Name: "start_dates"},
		{Field: "created_at", Name: "created_at"},
	},
	PreFilter: "premium = FALSE",
}

var updatableColumns = map[string]string{
	"name":            "name",
	"slug":            "slug",
	"duration":        "duration",
	"max_group_size":  "max_group_size",
	"difficulty":      "difficulty",
	"ratings_average": "ratings_average",
	"price":           "price",
	"price_discount":  "price_discount",
	"summary":         "summary",
	"description":     "description",
	"start_lat":       "start_lat",
	"start_lng":       "start_lng",
	"start_dates":     "start_dates",
	"premium":         "premium",
}

const tourColumns = `id, name, slug, duration, max_group_size, difficulty, ratings_average,
	ratings_quantity, price, price_discount, summary, description, start_lat, start_lng,
	start_dates, premium, created_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed tour repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanTour(row pgx.Row) (Tour, error) {
	var t Tour
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Duration, &t.MaxGroupSize, &t.Difficulty,
		&t.RatingsAverage, &t.RatingsQuantity, &t.Price, &t.PriceDiscount,
		&t.Summary, &t.Description, &t.StartLat, &t.StartLng, &t.StartDates,
		&t.Premium, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tour{}, store.ErrNotFound
	}
	if err != nil {
		return Tour{}, fmt.Errorf("scan tour: %w", err)
	}
	return t, nil
}

// FindByID fetches a non-premium tour by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (Tour, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE id = $1 AND premium = FALSE`, id)
	return scanTour(row)
}

// Find lists tours through the query pipeline's spec.
func (r *PostgresRepository) Find(ctx context.Context, spec query.Spec) ([]Tour, error) {
	sql, args, err := sqlBuilder.Select(spec)
	if err != nil {
		return nil, fmt.Errorf("build tour query: %w", err)
	}
	fields, err := sqlBuilder.ProjectedFields(spec.Projection)
	if err != nil {
		return nil, fmt.Errorf("build tour projection: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query tours: %w", err)
	}
	defer rows.Close()

	var tours []Tour
	for rows.Next() {
		var t Tour
		targets := make([]any, 0, len(fields))
		for _, field := range fields {
			targets = append(targets, scanTarget(&t, field))
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan tour row: %w", err)
		}
		tours = append(tours, t)
	}
	return tours, rows.Err()
}

func scanTarget(t *Tour, field string) any {
	switch field {
	case "id":
		return &t.ID
	case "name":
		return &t.Name
	case "slug":
		return &t.Slug
	case "duration":
		return &t.Duration
	case "max_group_size":
		return &t.MaxGroupSize
	case "difficulty":
		return &t.Difficulty
	case "ratings_average":
		return &t.RatingsAverage
	case "ratings_quantity":
		return &t.RatingsQuantity
	case "price":
		return &t.Price
	case "price_discount":
		return &t.PriceDiscount
	case "summary":
		return &t.Summary
	case "description":
		return &t.Description
	case "start_lat":
		return &t.StartLat
	case "start_lng":
		return &t.StartLng
	case "start_dates":
		return &t.StartDates
	case "created_at":
		return &t.CreatedAt
	default:
		return new(any)
	}
}

// Create inserts a new tour.
func (r *PostgresRepository) Create(ctx context.Context, t Tour) (Tour, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO tours
		(id, name, slug, duration, max_group_size, difficulty, ratings_average,
		 ratings_quantity, price, price_discount, summary, description,
		 start_lat, start_lng, start_dates, premium, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		t.ID, t.Name, t.Slug, t.Duration, t.MaxGroupSize, t.Difficulty, t.RatingsAverage,
		t.RatingsQuantity, t.Price, t.PriceDiscount, t.Summary, t.Description,
		t.StartLat, t.StartLng, t.StartDates, t.Premium, t.CreatedAt)
	if isUniqueViolation(err) {
		return Tour{}, store.ErrDuplicate
	}
	if err != nil {
		return Tour{}, fmt.Errorf("insert tour: %w", err)
	}
	return t, nil
}

// UpdateByID applies the given fields and returns the new state.
func (r *PostgresRepository) UpdateByID(ctx context.Context, id uuid.UUID, fields map[string]any) (Tour, error) {
	sets := make([]string, 0, len(fields))
	args := []any{id}
	for field, value := range fields {
		column, ok := updatableColumns[field]
		if !ok {
			return Tour{}, fmt.Errorf("cannot update tour field %q", field)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	row := r.db.QueryRow(ctx,
		`UPDATE tours SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+tourColumns, args...)
	t, err := scanTour(row)
	if isUniqueViolation(err) {
		return Tour{}, store.ErrDuplicate
	}
	return t, err
}

// DeleteByID removes a tour.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Stats aggregates the catalog per difficulty, cheapest bucket first.
func (r *PostgresRepository) Stats(ctx context.Context) ([]DifficultyStats, error) {
	rows, err := r.db.Query(ctx, `SELECT difficulty, COUNT(*),
		AVG(ratings_average), AVG(price), MIN(price), MAX(price)
		FROM tours WHERE premium = FALSE
		GROUP BY difficulty ORDER BY AVG(price)`)
	if err != nil {
		return nil, fmt.Errorf("query tour stats: %w", err)
	}
	defer rows.Close()

	var stats []DifficultyStats
	for rows.Next() {
		var s DifficultyStats
		if err := rows.Scan(&s.Difficulty, &s.Count, &s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, fmt.Errorf("scan tour stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// MonthlyPlan counts scheduled starts per month of the given year,
// busiest month first.
func (r *PostgresRepository) MonthlyPlan(ctx context.Context, year int) ([]MonthlyPlanEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT
		EXTRACT(MONTH FROM starts_on)::int AS month,
		COUNT(*) AS tour_starts,
		ARRAY_AGG(name ORDER BY name) AS tours
		FROM tours, UNNEST(start_dates) AS starts_on
		WHERE premium = FALSE
		AND starts_on >= MAKE_DATE($1, 1, 1)
		AND starts_on < MAKE_DATE($1 + 1, 1, 1)
		GROUP BY month ORDER BY tour_starts DESC, month`, year)
	if err != nil {
		return nil, fmt.Errorf("query monthly plan: %w", err)
	}
	defer rows.Close()

	var plan []MonthlyPlanEntry
	for rows.Next() {
		var e MonthlyPlanEntry
		if err := rows.Scan(&e.Month, &e.TourStarts, &e.Tours); err != nil {
			return nil, fmt.Errorf("scan monthly plan row: %w", err)
		}
		plan = append(plan, e)
	}
	return plan, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
