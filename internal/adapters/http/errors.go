package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/gfreitas/placepin/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int              `json:"status"`
	Code      string           `json:"code"`    // Error code: bad_request, not_found, duplicate_location, etc.
	Message   string           `json:"message"` // Human-readable message
	Field     string           `json:"field,omitempty"`
	Conflict  *domain.Location `json:"conflict,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// rejectionError maps a domain rejection to its HTTP status. Duplicate and
// nearby rejections are conflicts carrying the colliding record; everything
// else is the caller's input or a missing resource.
func rejectionError(c *fiber.Ctx, rej *domain.Rejection) error {
	status := 400
	switch rej.Code {
	case domain.RejectDuplicateLocation, domain.RejectNearbyLocation:
		status = 409
	case domain.RejectNotFound:
		status = 404
	}

	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      string(rej.Code),
		Message:   rej.Message,
		Field:     rej.Field,
		Conflict:  rej.Conflict,
		RequestID: reqID,
	})
}

// serviceError renders a rejection when the error is one, and a 500
// otherwise.
func serviceError(c *fiber.Ctx, err error) error {
	var rej *domain.Rejection
	if errors.As(err, &rej) {
		return rejectionError(c, rej)
	}
	return errInternal(c, err.Error())
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}
