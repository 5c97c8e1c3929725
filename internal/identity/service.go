package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/httpx"
	"github.com/trailhead-app/trailhead/internal/password"
	"github.com/trailhead-app/trailhead/internal/query"
	"github.com/trailhead-app/trailhead/internal/store"
	"github.com/trailhead-app/trailhead/internal/token"
)

const minPasswordLength = 8

// Service manages the identity lifecycle. Password hashing is an
// explicit step in each use case, never a store-side hook.
type Service struct {
	repo     Repository
	hasher   password.Hasher
	tokens   *token.Service
	resetTTL time.Duration
}

// NewService creates the identity service.
func NewService(repo Repository, hasher password.Hasher, tokens *token.Service, resetTTL time.Duration) *Service {
	if resetTTL <= 0 {
		resetTTL = 10 * time.Minute
	}
	return &Service{repo: repo, hasher: hasher, tokens: tokens, resetTTL: resetTTL}
}

// SignupInput carries the fields accepted at registration.
type SignupInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

// Signup creates a standard-role identity and issues a bearer token.
func (s *Service) Signup(ctx context.Context, in SignupInput) (User, string, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return User{}, "", err
	}
	if strings.TrimSpace(in.Name) == "" {
		return User{}, "", httpx.Validation("please provide a name")
	}
	if err := validatePassword(in.Password, in.PasswordConfirm); err != nil {
		return User{}, "", err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, "", httpx.Internal(err)
	}

	user := User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         RoleStandard,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return User{}, "", httpx.Validation("an account with this email already exists")
	}
	if err != nil {
		return User{}, "", httpx.Internal(err)
	}

	signed, err := s.tokens.Issue(created.ID)
	if err != nil {
		return User{}, "", httpx.Internal(err)
	}
	return created, signed, nil
}

// Login verifies credentials and issues a bearer token. Wrong email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, plaintext string) (User, string, error) {
	if email == "" || plaintext == "" {
		return User{}, "", httpx.Validation("please provide email and password")
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return User{}, "", httpx.Authentication("incorrect email or password")
	}

	user, err := s.repo.FindByEmail(ctx, normalized)
	if errors.Is(err, store.ErrNotFound) {
		return User{}, "", httpx.Authentication("incorrect email or password")
	}
	if err != nil {
		return User{}, "", httpx.Internal(err)
	}
	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		return User{}, "", httpx.Authentication("incorrect email or password")
	}

	signed, err := s.tokens.Issue(user.ID)
	if err != nil {
		return User{}, "", httpx.Internal(err)
	}
	return user, signed, nil
}

// Get fetches an active user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return User{}, httpx.NotFound("no user found with a matching id")
	}
	if err != nil {
		return User{}, httpx.Internal(err)
	}
	return user, nil
}

// List runs the query pipeline over the user collection.
func (s *Service) List(ctx context.Context, spec query.Spec) ([]User, error) {
	users, err := s.repo.Find(ctx, spec)
	if err != nil {
		return nil, httpx.Internal(err)
	}
	return users, nil
}

// ProfileUpdate carries the self-service updatable fields. Password
// updates go through UpdatePassword instead.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// UpdateProfile changes name and email for the given user.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (User, error) {
	fields := map[string]any{}
	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return User{}, httpx.Validation("name cannot be empty")
		}
		fields["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		email, err := normalizeEmail(*update.Email)
		if err != nil {
			return User{}, err
		}
		fields["email"] = email
	}
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	return s.applyUpdate(ctx, id, fields)
}

// AdminUpdate additionally allows changing role and the active flag.
type AdminUpdate struct {
	ProfileUpdate
	Role   *string
	Active *bool
}

// Update applies an administrative update. Password fields are not
// accepted here by construction.
func (s *Service) Update(ctx context.Context, id uuid.UUID, update AdminUpdate) (User, error) {
	fields := map[string]any{}
	if update.Name != nil {
		fields["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		email, err := normalizeEmail(*update.Email)
		if err != nil {
			return User{}, err
		}
		fields["email"] = email
	}
	if update.Role != nil {
		role, err := ParseRole(*update.Role)
		if err != nil {
			return User{}, httpx.Validation(err.Error())
		}
		fields["role"] = role
	}
	if update.Active != nil {
		fields["active"] = *update.Active
	}
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	return s.applyUpdate(ctx, id, fields)
}

// UpdatePassword verifies the current password and sets a new one,
// rotating the credentials timestamp so older tokens go stale. A fresh
// token is issued for the caller.
func (s *Service) UpdatePassword(ctx context.Context, id uuid.UUID, current, newPassword, confirm string) (User, string, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return User{}, "", err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return User{}, "", httpx.Authentication("your current password is wrong")
	}
	if err := validatePassword(newPassword, confirm); err != nil {
		return User{}, "", err
	}

	user, err = s.setPassword(ctx, user.ID, newPassword)
	if err != nil {
		return User{}, "", err
	}

	signed, err := s.tokens.Issue(user.ID)
	if err != nil {
		return User{}, "", httpx.Internal(err)
	}
	return user, signed, nil
}

// Deactivate soft-deletes the identity. The record stays in the store
// but becomes invisible to reads, which also invalidates its tokens at
// the access gate.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.applyUpdate(ctx, id, map[string]any{"active": false}); err != nil {
		return err
	}
	return nil
}

// Delete removes the identity permanently (administrative only).
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return httpx.NotFound("no user found with a matching id")
	}
	if err != nil {
		return httpx.Internal(err)
	}
	return nil
}

// setPassword hashes and stores a new password and rotates the
// credentials timestamp.
func (s *Service) setPassword(ctx context.Context, id uuid.UUID, plaintext string) (User, error) {
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return User{}, httpx.Internal(err)
	}
	changedAt := time.Now().UTC()
	return s.applyUpdate(ctx, id, map[string]any{
		"password_hash":       hash,
		"password_changed_at": changedAt,
	})
}

func (s *Service) applyUpdate(ctx context.Context, id uuid.UUID, fields map[string]any) (User, error) {
	user, err := s.repo.UpdateByID(ctx, id, fields)
	if errors.Is(err, store.ErrNotFound) {
		return User{}, httpx.NotFound("no user found with a matching id")
	}
	if errors.Is(err, store.ErrDuplicate) {
		return User{}, httpx.Validation("an account with this email already exists")
	}
	if err != nil {
		return User{}, httpx.Internal(err)
	}
	return user, nil
}

func validatePassword(plaintext, confirm string) error {
	if len(plaintext) < minPasswordLength {
		return httpx.Validation(fmt.Sprintf("a password must be at least %d characters", minPasswordLength))
	}
	if plaintext != confirm {
		return httpx.Validation("passwords must match")
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", httpx.Validation("please provide a valid email")
	}
	return email, nil
}
