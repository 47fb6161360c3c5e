package rest

import (
	"errors"
	"fmt"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *fiber.Ctx, status int, data any, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response
func JSONError(c *fiber.Ctx, status int, err error, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"code":    domain.Code(err),
		"error":   err.Error(),
	})
}

// MapErrorToHTTP maps engine error categories to an HTTP status and message.
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusUnprocessableEntity, "invalid bid or auction details"
	case errors.Is(err, domain.ErrState):
		return fiber.StatusConflict, "auction state does not allow this operation"
	case errors.Is(err, domain.ErrAuthorization):
		return fiber.StatusForbidden, "operation not allowed for this participant"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "resource not found"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return fiber.StatusServiceUnavailable, "auction busy, retry the request"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

// handleServiceError writes the mapped error response and logs it.
func handleServiceError(c *fiber.Ctx, handlerName string, err error) error {
	status, message := MapErrorToHTTP(err)
	if status >= fiber.StatusInternalServerError {
		log.Error(handlerName+": request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		log.Warn(handlerName+": request rejected", zap.String("path", c.Path()), zap.Error(err))
	}
	return JSONError(c, status, err, message)
}

// handleBindError sends a standardized JSON error for body or path binding failures.
func handleBindError(c *fiber.Ctx, handlerName string, err error) error {
	log.Warn(handlerName+": binding error", zap.Error(err))
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":  fiber.StatusBadRequest,
		"message": "invalid request payload",
		"code":    "bad_request",
		"error":   fmt.Errorf("invalid request payload: %w", err).Error(),
	})
}
