package http

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/crud-services/pkg/httpx"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	"github.com/sakashimaa/crud-services/pkg/utils"
	"github.com/sakashimaa/crud-services/services/product/internal/domain"
	"github.com/sakashimaa/crud-services/services/product/internal/service"
	"go.uber.org/zap"
)

type ProductHandler struct {
	products service.ProductService
	sellers  service.SellerService
	validate *validator.Validate
	timeout  time.Duration
	logger   *zap.Logger
}

func NewProductHandler(
	products service.ProductService,
	sellers service.SellerService,
	timeout time.Duration,
	logger *zap.Logger,
) *ProductHandler {
	return &ProductHandler{
		products: products,
		sellers:  sellers,
		validate: utils.NewValidator(),
		timeout:  timeout,
		logger:   logger,
	}
}

func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	products, err := h.products.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(products)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return httpx.Detail(c, fiber.StatusBadRequest, "invalid id")
	}

	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	product, err := h.products.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(product)
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var input domain.ProductInput
	if ok, err := httpx.BindJSON(c, h.validate, &input); !ok {
		return err
	}

	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	product, err := h.products.Create(ctx, &input)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(product)
}

// UpdateProduct answers with the same message whether or not the id exists.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return httpx.Detail(c, fiber.StatusBadRequest, "invalid id")
	}

	var input domain.ProductInput
	if ok, err := httpx.BindJSON(c, h.validate, &input); !ok {
		return err
	}

	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	if err := h.products.Update(ctx, id, &input); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Product successfully updated",
	})
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return httpx.Detail(c, fiber.StatusBadRequest, "invalid id")
	}

	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	if err := h.products.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Product deleted",
	})
}

func (h *ProductHandler) CreateSeller(c *fiber.Ctx) error {
	var input domain.SellerInput
	if ok, err := httpx.BindJSON(c, h.validate, &input); !ok {
		return err
	}

	ctx, cancel := httpx.RequestContext(c, h.timeout)
	defer cancel()

	seller, err := h.sellers.Create(ctx, &input)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(seller)
}

// Login echoes the credentials back. It authenticates nothing.
func (h *ProductHandler) Login(c *fiber.Ctx) error {
	var input domain.Login
	if ok, err := httpx.BindJSON(c, h.validate, &input); !ok {
		return err
	}

	return c.JSON(input)
}

func (h *ProductHandler) fail(c *fiber.Ctx, err error) error {
	status, detail := mapError(err)
	if status >= fiber.StatusInternalServerError {
		mylogger.Error(
			c.UserContext(),
			h.logger,
			"Product request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	return httpx.Detail(c, status, detail)
}
