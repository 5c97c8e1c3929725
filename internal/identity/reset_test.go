package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/trailhead-app/trailhead/internal/httpx"
	"github.com/trailhead-app/trailhead/internal/notification"
)

type captureNotifier struct {
	last notification.Message
	fail error
}

func (n *captureNotifier) Send(_ context.Context, m notification.Message) error {
	if n.fail != nil {
		return n.fail
	}
	n.last = m
	return nil
}

// secretFromBody pulls the raw reset secret out of the delivery body,
// the way a user would from the emailed link.
func secretFromBody(t *testing.T, body, resetURL string) string {
	t.Helper()
	idx := strings.Index(body, resetURL+"/")
	if idx < 0 {
		t.Fatalf("reset URL not found in body: %q", body)
	}
	rest := body[idx+len(resetURL)+1:]
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		rest = rest[:dot]
	}
	return rest
}

func TestResetPasswordConsumesSecretOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signupTestUser(t, svc, "hiker@example.com")

	notifier := &captureNotifier{}
	resetURL := "https://trailhead.test/api/v1/users/resetPassword"
	if err := svc.ForgotPassword(ctx, "hiker@example.com", resetURL, notifier); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	secret := secretFromBody(t, notifier.last.Body, resetURL)
	if secret == "" {
		t.Fatal("expected a reset secret in the delivery body")
	}

	user, signed, err := svc.ResetPassword(ctx, secret, "brandnewpass", "brandnewpass")
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if signed == "" {
		t.Fatal("expected a token after reset")
	}
	if user.ResetTokenHash != "" || user.ResetTokenExpiresAt != nil {
		t.Fatal("expected reset credential to be cleared")
	}

	if _, _, err := svc.Login(ctx, "hiker@example.com", "brandnewpass"); err != nil {
		t.Fatalf("login with reset password: %v", err)
	}

	_, _, err = svc.ResetPassword(ctx, secret, "anotherpass1", "anotherpass1")
	assertKind(t, err, httpx.KindAuthentication)
}

func TestResetPasswordRejectsExpiredSecret(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	user := signupTestUser(t, svc, "hiker@example.com")

	notifier := &captureNotifier{}
	resetURL := "https://trailhead.test/api/v1/users/resetPassword"
	if err := svc.ForgotPassword(ctx, "hiker@example.com", resetURL, notifier); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	secret := secretFromBody(t, notifier.last.Body, resetURL)

	past := time.Now().UTC().Add(-time.Minute)
	if _, err := repo.UpdateByID(ctx, user.ID, map[string]any{"reset_token_expires_at": past}); err != nil {
		t.Fatalf("expire secret: %v", err)
	}

	_, _, err := svc.ResetPassword(ctx, secret, "brandnewpass", "brandnewpass")
	assertKind(t, err, httpx.KindAuthentication)
}

func TestResetPasswordRejectsUnknownSecret(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.ResetPassword(context.Background(), "deadbeef", "brandnewpass", "brandnewpass")
	assertKind(t, err, httpx.KindAuthentication)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.ForgotPassword(context.Background(), "nobody@example.com", "https://trailhead.test/reset", &captureNotifier{})
	assertKind(t, err, httpx.KindNotFound)
}

func TestForgotPasswordRollsBackOnDeliveryFailure(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	user := signupTestUser(t, svc, "hiker@example.com")

	notifier := &captureNotifier{fail: errors.New("smtp unreachable")}
	err := svc.ForgotPassword(ctx, "hiker@example.com", "https://trailhead.test/reset", notifier)
	assertKind(t, err, httpx.KindDependency)

	stored, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.ResetTokenHash != "" || stored.ResetTokenExpiresAt != nil {
		t.Fatal("expected reset credential to be rolled back")
	}
}
