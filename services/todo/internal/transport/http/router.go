package http

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, h *TodoHandler) {
	app.Get("/", h.Root)

	todos := app.Group("/todos")
	// Literal segments first so they never parse as an id.
	todos.Get("/completed", h.ListCompleted)
	todos.Get("/pending", h.ListPending)

	todos.Get("", h.List)
	todos.Post("", h.Create)
	todos.Get("/:id", h.GetByID)
	todos.Put("/:id", h.Update)
	todos.Delete("/:id", h.Delete)
}
