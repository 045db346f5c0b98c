package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/ride-weather-viewer/internal/viewer"
)

// ErrorHandler is the app-wide error handler. Every failure is answered
// with {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var fe *fiber.Error
	var ve *viewer.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &ve):
		code = statusFor(ve.Kind)
		message = ve.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

func statusFor(kind viewer.Kind) int {
	switch kind {
	case viewer.KindValidation:
		return fiber.StatusBadRequest
	case viewer.KindService:
		return fiber.StatusBadGateway
	case viewer.KindTimeout:
		return fiber.StatusGatewayTimeout
	case viewer.KindBusy:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
