package handler

import (
	"github.com/gofiber/fiber/v2"

	"docflow/internal/http/middleware"
	"docflow/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeWorkflowError translates a workflow service failure into the error
// envelope. Expected failures keep their human-readable reason; anything
// else is a generic 500.
func writeWorkflowError(c *fiber.Ctx, err error) error {
	kind, ok := service.KindOf(err)
	if !ok {
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}

	var status int
	switch kind {
	case service.KindAuthMissing:
		status = fiber.StatusUnauthorized
	case service.KindNotFound:
		status = fiber.StatusNotFound
	case service.KindPermission:
		status = fiber.StatusForbidden
	case service.KindPrecondition, service.KindAssignment:
		status = fiber.StatusConflict
	case service.KindPolicy:
		status = fiber.StatusUnprocessableEntity
	default:
		status = fiber.StatusInternalServerError
	}
	return writeError(c, status, string(kind), err.Error())
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "internal server error"
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
			message = e.Message
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", message)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
