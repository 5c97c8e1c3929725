// Package store defines the minimal repository capability set shared by
// every resource type, together with a generic in-memory implementation
// used in development mode and tests.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/query"
)

// ErrNotFound signals that no record exists for the given id or lookup.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate signals a unique-field collision on insert or update.
var ErrDuplicate = errors.New("record already exists")

// Repository is the capability set implemented once per backing store
// and reused for every resource type.
type Repository[T any] interface {
	FindByID(ctx context.Context, id uuid.UUID) (T, error)
	Find(ctx context.Context, spec query.Spec) ([]T, error)
	Create(ctx context.Context, record T) (T, error)
	UpdateByID(ctx context.Context, id uuid.UUID, fields map[string]any) (T, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}
