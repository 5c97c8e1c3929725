package httpx

import (
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the JSON shape of every response: "success" for 2xx,
// "fail" for client-caused 4xx, "error" for 5xx.
type Envelope struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Success writes a success envelope with the given status code.
func Success(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Envelope{Status: "success", Data: data})
}

// SuccessList writes a success envelope with a result count, used by
// list endpoints.
func SuccessList(c *fiber.Ctx, results int, data any) error {
	return c.Status(http.StatusOK).JSON(Envelope{Status: "success", Results: &results, Data: data})
}

// NoContent ends the request with 204 and an empty body.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

func respondFail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Envelope{Status: "fail", Message: message})
}

func respondError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Envelope{Status: "error", Message: message})
}

// QueryValues collects the raw query string into url.Values, preserving
// repeated keys, which fiber's Queries map flattens.
func QueryValues(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return values
}
