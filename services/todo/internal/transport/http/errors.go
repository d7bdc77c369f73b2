package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/crud-services/services/todo/internal/repository"
)

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrTodoNotFound):
		return fiber.StatusNotFound, "Todo not found"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "request timed out"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}
