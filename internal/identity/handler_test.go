package identity_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/trailhead-app/trailhead/internal/httpx"
	"github.com/trailhead-app/trailhead/internal/identity"
	"github.com/trailhead-app/trailhead/internal/logging"
	"github.com/trailhead-app/trailhead/internal/middleware"
	"github.com/trailhead-app/trailhead/internal/notification"
	"github.com/trailhead-app/trailhead/internal/password"
	"github.com/trailhead-app/trailhead/internal/token"
)

type testEnv struct {
	app    *fiber.App
	repo   identity.Repository
	tokens *token.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := identity.NewMemoryRepository()
	tokens := token.NewService("test-secret", time.Hour)
	svc := identity.NewService(repo, password.NewHasher(bcrypt.MinCost), tokens, 10*time.Minute)
	logger := logging.Discard()
	handler := identity.NewHandler(svc, notification.NewLogNotifier(logger), "https://trailhead.test/resetPassword")

	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(logger, false)})
	authGate := middleware.RequireAuth(tokens, repo)

	users := app.Group("/api/v1/users")
	users.Post("/signup", handler.Signup)
	users.Post("/login", handler.Login)
	users.Get("/me", authGate, handler.Me)
	users.Patch("/me", authGate, handler.UpdateMe)
	users.Delete("/me", authGate, handler.DeleteMe)
	users.Patch("/updateMyPassword", authGate, handler.UpdateMyPassword)

	admin := users.Group("", authGate, middleware.RequireRoles(identity.RoleAdministrator))
	admin.Get("/", handler.List)

	return &testEnv{app: app, repo: repo, tokens: tokens}
}

type envelope struct {
	Status  string          `json:"status"`
	Results *int            `json:"results"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (e *testEnv) do(t *testing.T, method, target, body, bearer string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	resp.Body.Close()
	return resp, env
}

func (e *testEnv) signup(t *testing.T, email string) string {
	t.Helper()
	body := `{"name":"Test Hiker","email":"` + email + `","password":"password123","passwordConfirm":"password123"}`
	resp, env := e.do(t, http.MethodPost, "/api/v1/users/signup", body, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, message = %q", resp.StatusCode, env.Message)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode auth data: %v", err)
	}
	if data.Token == "" {
		t.Fatal("expected a token in the signup response")
	}
	return data.Token
}

func TestSignupEndpoint(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup(t, "hiker@example.com")

	if _, _, err := env.tokens.Verify(tok); err != nil {
		t.Fatalf("signup token does not verify: %v", err)
	}
}

func TestSignupEndpointRejectsShortPassword(t *testing.T) {
	env := newTestEnv(t)

	body := `{"name":"Test Hiker","email":"hiker@example.com","password":"seven77","passwordConfirm":"seven77"}`
	resp, e := env.do(t, http.MethodPost, "/api/v1/users/signup", body, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if e.Status != "fail" {
		t.Fatalf("status field = %q, want fail", e.Status)
	}
}

func TestMeRequiresValidToken(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup(t, "hiker@example.com")

	resp, e := env.do(t, http.MethodGet, "/api/v1/users/me", "", tok)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, message = %q", resp.StatusCode, e.Message)
	}
	var data struct {
		User identity.User `json:"user"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		t.Fatalf("decode me data: %v", err)
	}
	if data.User.Email != "hiker@example.com" {
		t.Fatalf("email = %q", data.User.Email)
	}

	// Flip the last signature character so the signature check fails.
	tampered := tok[:len(tok)-1]
	if strings.HasSuffix(tok, "A") {
		tampered += "B"
	} else {
		tampered += "A"
	}
	resp, _ = env.do(t, http.MethodGet, "/api/v1/users/me", "", tampered)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("tampered token status = %d, want 401", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/v1/users/me", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", resp.StatusCode)
	}
}

func TestUpdateMeRejectsPasswordFields(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup(t, "hiker@example.com")

	resp, e := env.do(t, http.MethodPatch, "/api/v1/users/me", `{"password":"newpassword1"}`, tok)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(e.Message, "updateMyPassword") {
		t.Fatalf("message = %q", e.Message)
	}
}

func TestDeleteMeDeactivates(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup(t, "hiker@example.com")

	resp, _ := env.do(t, http.MethodDelete, "/api/v1/users/me", "", tok)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	// The soft-deleted user is invisible, so the same token no longer
	// resolves to an account.
	resp, _ = env.do(t, http.MethodGet, "/api/v1/users/me", "", tok)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status after delete = %d, want 401", resp.StatusCode)
	}
}

func TestAdminRoutesAreRoleGated(t *testing.T) {
	env := newTestEnv(t)
	tok := env.signup(t, "standard@example.com")

	resp, _ := env.do(t, http.MethodGet, "/api/v1/users/", "", tok)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("standard role status = %d, want 403", resp.StatusCode)
	}

	adminTok := env.signup(t, "admin@example.com")
	sub, _, err := env.tokens.Verify(adminTok)
	if err != nil {
		t.Fatalf("verify admin token: %v", err)
	}
	if _, err := env.repo.UpdateByID(context.Background(), sub, map[string]any{"role": identity.RoleAdministrator}); err != nil {
		t.Fatalf("promote admin: %v", err)
	}

	resp, e := env.do(t, http.MethodGet, "/api/v1/users/", "", adminTok)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("administrator status = %d, message = %q", resp.StatusCode, e.Message)
	}
	if e.Results == nil || *e.Results != 2 {
		t.Fatalf("results = %v, want 2", e.Results)
	}
}
