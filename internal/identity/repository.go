package identity

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

// Repository persists users. It extends the generic capability set with
// the credential lookups the auth flows need; those bypass the active
// pre-filter only where noted.
type Repository interface {
	store.Repository[User]
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByResetTokenHash(ctx context.Context, hash string) (User, error)
}

// QueryOptions is the pipeline configuration for user list endpoints.
// Credential columns are deliberately absent.
func QueryOptions() query.Options {
	return query.Options{
		Filterable: []string{"name", "email", "role", "created_at"},
	}
}

var sqlBuilder = query.SQLBuilder{
	Table: "users",
	Columns: []query.Column{
		{Field: "id", Name: "id"},
		{Field: "name", Name: "name"},
		{Field: "email", Name: "email"},
		{Field: "role", Name: "role"},
		{Field: "created_at", Name: "created_at"},
	},
	PreFilter: "active = TRUE",
}

// updatableColumns gates UpdateByID field names; everything else is a
// programming error surfaced as a failed update.
var updatableColumns = map[string]string{
	"name":                   "name",
	"email":                  "email",
	"role":                   "role",
	"password_hash":          "password_hash",
	"password_changed_at":    "password_changed_at",
	"reset_token_hash":       "reset_token_hash",
	"reset_token_expires_at": "reset_token_expires_at",
	"active":                 "active",
}

const userColumns = `id, name, email, password_hash, role, password_changed_at,
	reset_token_hash, reset_token_expires_at, active, created_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.PasswordChangedAt, &user.ResetTokenHash, &user.ResetTokenExpiresAt,
		&user.Active, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, store.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// FindByID fetches an active user by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND active = TRUE`, id)
	return scanUser(row)
}

// FindByEmail fetches an active user by normalized email, including the
// password hash for credential checks.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND active = TRUE`, email)
	return scanUser(row)
}

// FindByResetTokenHash fetches the user holding an outstanding reset
// credential with the given digest.
func (r *PostgresRepository) FindByResetTokenHash(ctx context.Context, hash string) (User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1 AND active = TRUE`, hash)
	return scanUser(row)
}

// Find lists users through the query pipeline's spec.
func (r *PostgresRepository) Find(ctx context.Context, spec query.Spec) ([]User, error) {
	sql, args, err := sqlBuilder.Select(spec)
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}
	fields, err := sqlBuilder.ProjectedFields(spec.Projection)
	if err != nil {
		return nil, fmt.Errorf("build user projection: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		targets := make([]any, 0, len(fields))
		for _, field := range fields {
			switch field {
			case "id":
				targets = append(targets, &user.ID)
			case "name":
				targets = append(targets, &user.Name)
			case "email":
				targets = append(targets, &user.Email)
			case "role":
				targets = append(targets, &user.Role)
			case "created_at":
				targets = append(targets, &user.CreatedAt)
			}
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		user.Active = true
		users = append(users, user)
	}
	return users, rows.Err()
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO users
		(id, name, email, password_hash, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return User{}, store.ErrDuplicate
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// UpdateByID applies the given fields and returns the new state. The
// active pre-filter is not applied so a soft-deleted account can be
// restored.
func (r *PostgresRepository) UpdateByID(ctx context.Context, id uuid.UUID, fields map[string]any) (User, error) {
	sets := make([]string, 0, len(fields))
	args := []any{id}
	for field, value := range fields {
		column, ok := updatableColumns[field]
		if !ok {
			return User{}, fmt.Errorf("cannot update user field %q", field)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	row := r.db.QueryRow(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+userColumns, args...)
	user, err := scanUser(row)
	if isUniqueViolation(err) {
		return User{}, store.ErrDuplicate
	}
	return user, err
}

// DeleteByID removes a user permanently. Soft delete goes through
// UpdateByID with active=false instead.
func (r *PostgresRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
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
