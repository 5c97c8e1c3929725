package identity

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trailhead-app/trailhead/internal/httpx"
	"github.com/trailhead-app/trailhead/internal/notification"
	"github.com/trailhead-app/trailhead/internal/query"
)

// Handler exposes the user and auth endpoints.
type Handler struct {
	service  *Service
	notifier notification.Notifier
	resetURL string
}

// NewHandler constructs the identity HTTP handler.
func NewHandler(service *Service, notifier notification.Notifier, resetURL string) *Handler {
	return &Handler{service: service, notifier: notifier, resetURL: resetURL}
}

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type authData struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// Signup registers a new identity and logs it in.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	user, signed, err := h.service.Signup(c.UserContext(), SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusCreated, authData{Token: signed, User: &user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	_, signed, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, authData{Token: signed})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword starts the reset flow and mails the secret.
func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	if err := h.service.ForgotPassword(c.UserContext(), req.Email, h.resetURL, h.notifier); err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, fiber.Map{"message": "token sent to email"})
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// ResetPassword consumes the emailed secret and sets a new password.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	_, signed, err := h.service.ResetPassword(c.UserContext(), c.Params("secret"), req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, authData{Token: signed})
}

type updatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdateMyPassword changes the caller's password and reissues a token.
func (h *Handler) UpdateMyPassword(c *fiber.Ctx) error {
	user, ok := Current(c)
	if !ok {
		return httpx.Authentication("you are not logged in")
	}
	var req updatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	_, signed, err := h.service.UpdatePassword(c.UserContext(), user.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, authData{Token: signed})
}

// Me returns the caller's own profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, ok := Current(c)
	if !ok {
		return httpx.Authentication("you are not logged in")
	}
	return httpx.Success(c, http.StatusOK, fiber.Map{"user": user})
}

// UpdateMe updates the caller's name and email. Password keys are
// rejected and pointed at /updateMyPassword.
func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	user, ok := Current(c)
	if !ok {
		return httpx.Authentication("you are not logged in")
	}

	var raw map[string]any
	if err := c.BodyParser(&raw); err != nil {
		return httpx.Validation("invalid request body")
	}
	if _, found := raw["password"]; found {
		return httpx.Validation("this route is not for password updates, use /updateMyPassword")
	}
	if _, found := raw["passwordConfirm"]; found {
		return httpx.Validation("this route is not for password updates, use /updateMyPassword")
	}

	updated, err := h.service.UpdateProfile(c.UserContext(), user.ID, profileUpdateFrom(raw))
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, fiber.Map{"user": updated})
}

// DeleteMe soft-deletes the caller's identity.
func (h *Handler) DeleteMe(c *fiber.Ctx) error {
	user, ok := Current(c)
	if !ok {
		return httpx.Authentication("you are not logged in")
	}
	if err := h.service.Deactivate(c.UserContext(), user.ID); err != nil {
		return err
	}
	return httpx.NoContent(c)
}

// List runs the query pipeline over users (administrative).
func (h *Handler) List(c *fiber.Ctx) error {
	spec, err := query.Parse(httpx.QueryValues(c), QueryOptions())
	if err != nil {
		return httpx.Validation(err.Error())
	}
	users, err := h.service.List(c.UserContext(), spec)
	if err != nil {
		return err
	}
	return httpx.SuccessList(c, len(users), fiber.Map{"users": users})
}

// Get fetches one user by id (administrative).
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, fiber.Map{"user": user})
}

type adminUpdateRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

// Update applies an administrative update to a user.
func (h *Handler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req adminUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.Validation("invalid request body")
	}
	user, err := h.service.Update(c.UserContext(), id, AdminUpdate{
		ProfileUpdate: ProfileUpdate{Name: req.Name, Email: req.Email},
		Role:          req.Role,
		Active:        req.Active,
	})
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, fiber.Map{"user": user})
}

// Delete removes a user permanently (administrative).
func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return httpx.NoContent(c)
}

func profileUpdateFrom(raw map[string]any) ProfileUpdate {
	var update ProfileUpdate
	if name, ok := raw["name"].(string); ok {
		update.Name = &name
	}
	if email, ok := raw["email"].(string); ok {
		update.Email = &email
	}
	return update
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, httpx.Validation("invalid user id")
	}
	return id, nil
}
