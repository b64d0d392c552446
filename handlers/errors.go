// handlers/errors.go
package handlers

import (
	"errors"

	"badge-settlement-service/services"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		verr *services.ValidationError
		serr *services.StorageError
		terr *services.SettlementError
	)
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrUnknownBadge):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrSettlementInProgress):
		return fiber.StatusConflict
	case errors.As(err, &terr):
		return fiber.StatusInternalServerError
	case errors.As(err, &serr):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func writeError(c *fiber.Ctx, msg string, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}
