package http

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/crud-services/pkg/httpx"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	"github.com/sakashimaa/crud-services/pkg/utils"
	"github.com/sakashimaa/crud-services/services/todo/internal/domain"
	"github.com/sakashimaa/crud-services/services/todo/internal/service"
	"go.uber.org/zap"
)

type TodoHandler struct {
	service  service.TodoService
	validate *validator.Validate
	timeout  time.Duration
	logger   *zap.Logger
}

func NewTodoHandler(svc service.TodoService, timeout time.Duration, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{
		service:  svc,
		validate: utils.NewValidator(),
		timeout:  timeout,
		logger:   logger,
	}
}

func (h *TodoHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Welcome to Todo List API",
	})
}

func (h *TodoHandler) List(c *fiber.Ctx) error {
	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	todos, err := h.service.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(todos)
}

func (h *TodoHandler) ListCompleted(c *fiber.Ctx) error {
	return h.listByStatus(c, true)
}

func (h *TodoHandler) ListPending(c *fiber.Ctx) error {
	return h.listByStatus(c, false)
}

func (h *TodoHandler) listByStatus(c *fiber.Ctx, completed bool) error {
	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	todos, err := h.service.ListByStatus(ctx, completed)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(todos)
}

func (h *TodoHandler) GetByID(c *fiber.Ctx) error {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return httpx.Detail(c, fiber.StatusBadRequest, "invalid id")
	}

	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	todo, err := h.service.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(todo)
}

func (h *TodoHandler) Create(c *fiber.Ctx) error {
	var input domain.CreateTodoInput
	if ok, err := httpx.BindJSON(c, h.validate, &input); !ok {
		return err
	}

	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	todo, err := h.service.Create(ctx, &input)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(todo)
}

func (h *TodoHandler) Update(c *fiber.Ctx) error {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return httpx.Detail(c, fiber.StatusBadRequest, "invalid id")
	}

	var patch domain.TodoPatch
	if ok, err := httpx.BindJSON(c, h.validate, &patch); !ok {
		return err
	}

	if violations := patch.Violations(); len(violations) > 0 {
		return httpx.Detail(c, fiber.StatusUnprocessableEntity, violations)
	}

	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	todo, err := h.service.Update(ctx, id, &patch)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(todo)
}

func (h *TodoHandler) Delete(c *fiber.Ctx) error {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return httpx.Detail(c, fiber.StatusBadRequest, "invalid id")
	}

	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	todo, err := h.service.Delete(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Todo '%s' deleted successfully", todo.Title),
	})
}

func (h *TodoHandler) fail(c *fiber.Ctx, err error) error {
	status, detail := mapError(err)
	if status >= fiber.StatusInternalServerError {
		mylogger.Error(
			c.UserContext(),
			h.logger,
			"Todo request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return httpx.Detail(c, status, detail)
}
