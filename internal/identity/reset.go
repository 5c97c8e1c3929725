package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/trailhead-app/trailhead/internal/httpx"
	"github.com/trailhead-app/trailhead/internal/notification"
	"github.com/trailhead-app/trailhead/internal/store"
)

// The reset secret is high-entropy and short-lived, so a fast sha256
// digest is enough for storage; the slow password hasher is reserved
// for low-entropy passwords.

// generateResetSecret returns the raw secret handed to the requester
// and the digest that gets persisted.
func generateResetSecret() (raw string, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate reset secret: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, hashResetSecret(raw), nil
}

func hashResetSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ForgotPassword generates a single-use reset credential, stores its
// digest with an expiry, and mails the raw secret. A delivery failure
// rolls the stored credential back so no undeliverable reset window
// stays open.
func (s *Service) ForgotPassword(ctx context.Context, email, resetURL string, notifier notification.Notifier) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.repo.FindByEmail(ctx, normalized)
	if errors.Is(err, store.ErrNotFound) {
		return httpx.NotFound("there is no user with that email address")
	}
	if err != nil {
		return httpx.Internal(err)
	}

	raw, digest, err := generateResetSecret()
	if err != nil {
		return httpx.Internal(err)
	}
	expiry := time.Now().UTC().Add(s.resetTTL)

	if _, err := s.applyUpdate(ctx, user.ID, map[string]any{
		"reset_token_hash":       digest,
		"reset_token_expires_at": expiry,
	}); err != nil {
		return err
	}

	message := notification.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %s)", s.resetTTL),
		Body: fmt.Sprintf(
			"Forgot your password? Submit a PATCH request with your new password to %s/%s.\n"+
				"If you didn't forget your password, please ignore this email.",
			resetURL, raw),
	}
	if err := notifier.Send(ctx, message); err != nil {
		// Roll back so the user can simply retry the request.
		_, _ = s.applyUpdate(ctx, user.ID, map[string]any{
			"reset_token_hash":       "",
			"reset_token_expires_at": nil,
		})
		return httpx.Dependency("there was an error sending the email, try again later", err)
	}

	return nil
}

// ResetPassword consumes a reset secret: it recomputes the digest,
// checks the expiry, sets the new password and clears the stored
// credential. The caller is not told which check failed. Consumption is
// what makes the secret single-use.
func (s *Service) ResetPassword(ctx context.Context, rawSecret, newPassword, confirm string) (User, string, error) {
	user, err := s.repo.FindByResetTokenHash(ctx, hashResetSecret(rawSecret))
	if errors.Is(err, store.ErrNotFound) {
		return User{}, "", httpx.Authentication("token is invalid or has expired")
	}
	if err != nil {
		return User{}, "", httpx.Internal(err)
	}
	if user.ResetTokenExpiresAt == nil || !user.ResetTokenExpiresAt.After(time.Now()) {
		return User{}, "", httpx.Authentication("token is invalid or has expired")
	}

	if err := validatePassword(newPassword, confirm); err != nil {
		return User{}, "", err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return User{}, "", httpx.Internal(err)
	}
	changedAt := time.Now().UTC()
	user, err = s.applyUpdate(ctx, user.ID, map[string]any{
		"password_hash":          hash,
		"password_changed_at":    changedAt,
		"reset_token_hash":       "",
		"reset_token_expires_at": nil,
	})
	if err != nil {
		return User{}, "", err
	}

	signed, err := s.tokens.Issue(user.ID)
	if err != nil {
		return User{}, "", httpx.Internal(err)
	}
	return user, signed, nil
}
