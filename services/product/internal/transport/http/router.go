package http

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, h *ProductHandler) {
	app.Get("/products", h.ListProducts)

	product := app.Group("/product")
	product.Post("", h.CreateProduct)
	product.Get("/:id", h.GetProduct)
	product.Put("/:id", h.UpdateProduct)
	product.Delete("/:id", h.DeleteProduct)

	app.Post("/seller", h.CreateSeller)
	app.Post("/login", h.Login)
}
