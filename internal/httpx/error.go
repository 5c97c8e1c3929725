package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a request failure for status mapping.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindDependency
	KindInternal
)

// Error is the application error carried from services up to the fiber
// error handler, where it is rendered into the response envelope.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Validation reports malformed or missing input.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Authentication reports a missing, invalid, expired or stale credential.
func Authentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// Authorization reports a role that is not permitted for the route.
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// NotFound reports an absent record.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Dependency reports a downstream collaborator failure.
func Dependency(message string, err error) *Error {
	return &Error{Kind: KindDependency, Message: message, Err: err}
}

// Internal wraps anything unanticipated.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "something went wrong", Err: err}
}

// ErrorHandler renders every handler failure into the response envelope.
// With diagnostic=true (development) internal error detail is included in
// the message; in production it is replaced with a generic line and logged.
func ErrorHandler(logger *slog.Logger, diagnostic bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *Error
		if errors.As(err, &appErr) {
			status := appErr.HTTPStatus()
			message := appErr.Message
			if status >= http.StatusInternalServerError {
				logger.Error("request failed", "path", c.Path(), "error", err)
				if diagnostic {
					message = appErr.Error()
				}
				return respondError(c, status, message)
			}
			return respondFail(c, status, message)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			if fiberErr.Code >= http.StatusInternalServerError {
				logger.Error("request failed", "path", c.Path(), "error", err)
				return respondError(c, fiberErr.Code, fiberErr.Message)
			}
			return respondFail(c, fiberErr.Code, fiberErr.Message)
		}

		logger.Error("unhandled error", "path", c.Path(), "error", err)
		message := "something went wrong"
		if diagnostic {
			message = err.Error()
		}
		return respondError(c, http.StatusInternalServerError, message)
	}
}
