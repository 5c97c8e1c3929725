package review

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

// Repository persists reviews.
type Repository interface {
	store.Repository[Review]
}

// QueryOptions is the pipeline configuration for review list endpoints.
func QueryOptions() query.Options {
	return query.Options{
		Filterable: []string{"rating", "tour_id", "user_id", "created_at"},
	}
}

var sqlBuilder = query.SQLBuilder{
	Table: "reviews",
	Columns: []query.Column{
		{Field: "id", Name: "id"},
		{Field: "review", Name: "review"},
		{Field: "rating", Name: "rating"},
		{Field: "tour_id", Name: "tour_id"},
		{Field: "user_id", Name: "user_id"},
		{Field: "created_at", Name: "created_at"},
	},
}

var updatableColumns = map[string]string{
	"review": "review",
	"rating": "rating",
}

const reviewColumns = `id, review, rating, tour_id, user_id, created_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed review repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanReview(row pgx.Row) (Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.Review, &r.Rating, &r.TourID, &r.UserID, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Review{}, store.ErrNotFound
	}
	if err != nil {
		return Review{}, fmt.Errorf("scan review: %w", err)
	}
	return r, nil
}

// FindByID fetches a review by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (Review, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
	return scanReview(row)
}

// Find lists reviews through the query pipeline's spec.
func (r *PostgresRepository) Find(ctx context.Context, spec query.Spec) ([]Review, error) {
	sql, args, err := sqlBuilder.Select(spec)
	if err != nil {
		return nil, fmt.Errorf("build review query: %w", err)
	}
	fields, err := sqlBuilder.ProjectedFields(spec.Projection)
	if err != nil {
		return nil, fmt.Errorf("build review projection: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var rec Review
		targets := make([]any, 0, len(fields))
		for _, field := range fields {
			targets = append(targets, scanTarget(&rec, field))
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rec)
	}
	return reviews, rows.Err()
}

func scanTarget(r *Review, field string) any {
	switch field {
	case "id":
		return &r.ID
	case "review":
		return &r.Review
	case "rating":
		return &r.Rating
	case "tour_id":
		return &r.TourID
	case "user_id":
		return &r.UserID
	case "created_at":
		return &r.CreatedAt
	default:
		return new(any)
	}
}

// Create inserts a new review. The (tour_id, user_id) unique index
// reports a second review for the same tour as a duplicate.
func (r *PostgresRepository) Create(ctx context.Context, rec Review) (Review, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO reviews
		(id, review, rating, tour_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Review, rec.Rating, rec.TourID, rec.UserID, rec.CreatedAt)
	if isUniqueViolation(err) {
		return Review{}, store.ErrDuplicate
	}
	if err != nil {
		return Review{}, fmt.Errorf("insert review: %w", err)
	}
	return rec, nil
}

// UpdateByID applies the given fields and returns the new state.
func (r *PostgresRepository) UpdateByID(ctx context.Context, id uuid.UUID, fields map[string]any) (Review, error) {
	sets := make([]string, 0, len(fields))
	args := []any{id}
	for field, value := range fields {
		column, ok := updatableColumns[field]
		if !ok {
			return Review{}, fmt.Errorf("cannot update review field %q", field)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	row := r.db.QueryRow(ctx,
		`UPDATE reviews SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+reviewColumns, args...)
	return scanReview(row)
}

// DeleteByID removes a review.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
