package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/query"
	"github.com/trailhead-app/trailhead/internal/store"
)

type memoryRepository struct {
	*store.Memory[User]
}

// NewMemoryRepository builds an in-memory user store for development
// mode and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{Memory: store.NewMemory(userAccessor())}
}

func userAccessor() store.Accessor[User] {
	return store.Accessor[User]{
		ID: func(u User) uuid.UUID { return u.ID },
		Field: func(u User, field string) (any, bool) {
			switch field {
			case "name":
				return u.Name, true
			case "email":
				return u.Email, true
			case "role":
				return string(u.Role), true
			case "created_at":
				return u.CreatedAt, true
			default:
				return nil, false
			}
		},
		Apply:   applyUserFields,
		Project: projectUser,
		Unique:  func(u User) string { return u.Email },
		Visible: func(u User) bool { return u.Active },
	}
}

// projectUser zeroes the fields a projected SQL select would not scan.
func projectUser(u User, p query.Projection) User {
	if !p.Keeps("name") {
		u.Name = ""
	}
	if !p.Keeps("email") {
		u.Email = ""
	}
	if !p.Keeps("role") {
		u.Role = ""
	}
	if !p.Keeps("created_at") {
		u.CreatedAt = time.Time{}
	}
	return u
}

func applyUserFields(u User, fields map[string]any) User {
	for field, value := range fields {
		switch field {
		case "name":
			u.Name, _ = value.(string)
		case "email":
			u.Email, _ = value.(string)
		case "role":
			if role, ok := value.(Role); ok {
				u.Role = role
			}
		case "password_hash":
			u.PasswordHash, _ = value.([]byte)
		case "password_changed_at":
			u.PasswordChangedAt = asTimePtr(value)
		case "reset_token_hash":
			u.ResetTokenHash, _ = value.(string)
		case "reset_token_expires_at":
			u.ResetTokenExpiresAt = asTimePtr(value)
		case "active":
			u.Active, _ = value.(bool)
		}
	}
	return u
}

func asTimePtr(value any) *time.Time {
	switch v := value.(type) {
	case *time.Time:
		return v
	case time.Time:
		return &v
	default:
		return nil
	}
}

// FindByEmail looks up a user by normalized email. Unlike the SQL
// repository this scans all records, but the active pre-filter still
// applies.
func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	for _, user := range r.All() {
		if user.Email == email && user.Active {
			return user, nil
		}
	}
	return User{}, store.ErrNotFound
}

// FindByResetTokenHash looks up the holder of an outstanding reset
// credential by digest.
func (r *memoryRepository) FindByResetTokenHash(_ context.Context, hash string) (User, error) {
	if hash == "" {
		return User{}, store.ErrNotFound
	}
	for _, user := range r.All() {
		if user.ResetTokenHash == hash && user.Active {
			return user, nil
		}
	}
	return User{}, store.ErrNotFound
}
