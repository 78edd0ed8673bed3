package serverutils

import (
	"errors"

	"resume-qa-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON
// error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := classify(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func classify(err error) (int, string) {
	var fiberErr *fiber.Error
	var validationErr *ValidationError

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, validationErr.Error()
	case errors.Is(err, entity.ErrInvalidQuestion):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound, "not found"
	case errors.Is(err, entity.ErrRetrievalUnavailable):
		return fiber.StatusServiceUnavailable, "retrieval unavailable"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
