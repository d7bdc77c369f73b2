package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/crud-services/services/product/internal/repository"
)

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return fiber.StatusNotFound, "Product not found"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "request timed out"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
