package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/crud-services/pkg/utils"
)

// Detail writes the {"detail": ...} error body used by every route.
func Detail(c *fiber.Ctx, status int, detail any) error {
	return c.Status(status).JSON(fiber.Map{
		"detail": detail,
	})
}

// ParseID reads an integer path parameter.
func ParseID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// BindJSON parses the body into dst and validates it. Malformed JSON is a 400,
// a wrong type or a failed validation is a 422. On failure the
// response has already been written and the returned error must be returned
// from the handler as is.
func BindJSON(c *fiber.Ctx, validate *validator.Validate, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return false, Detail(c, fiber.StatusUnprocessableEntity, map[string]string{
				field: fmt.Sprintf("%s has an invalid type", field),
			})
		}

		return false, Detail(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		return false, Detail(c, fiber.StatusUnprocessableEntity, utils.FormatValidationError(err))
	}

	return true, nil
}

// RequestContext bounds the handler's work by timeout and carries the span
// started by the tracing middleware.
func RequestContext(c *fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}

	return context.WithTimeout(c.UserContext(), timeout)
}
