package tests

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/crud-services/services/todo/internal/domain"
)

func (s *IntegrationTestSuite) TestUpdateTodo_PartialPayloads() {
	payloads := []string{
		`{}`,
		`{"completed":true}`,
		`{"title":"Buy oat milk"}`,
		`{"description":"two cartons"}`,
		`{"description":null}`,
		`{"title":"Buy milk","description":"one carton","completed":false}`,
	}

	var current domain.Todo
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/todos", `{"title":"Buy milk","description":"2 liters"}`, &current))

	for _, payload := range payloads {
		var patch domain.TodoPatch
		s.Require().NoError(json.Unmarshal([]byte(payload), &patch))

		var updated domain.Todo
		status := s.request(fiber.MethodPut, fmt.Sprintf("/todos/%d", current.ID), payload, &updated)
		s.Require().Equal(fiber.StatusOK, status, payload)

		s.Require().Equal(patch.Apply(current).Title, updated.Title, payload)
		s.Require().Equal(patch.Apply(current).Description, updated.Description, payload)
		s.Require().Equal(patch.Apply(current).Completed, updated.Completed, payload)
		s.Require().True(updated.UpdatedAt.After(current.UpdatedAt), payload)
		s.Require().True(updated.CreatedAt.Equal(current.CreatedAt), payload)

		current = updated
	}
}

func (s *IntegrationTestSuite) TestUpdateTodo_EvictsCache() {
	var created domain.Todo
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/todos", `{"title":"Buy milk"}`, &created))

	// Warm the cache.
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, fmt.Sprintf("/todos/%d", created.ID), "", nil))

	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPut, fmt.Sprintf("/todos/%d", created.ID), `{"completed":true}`, nil))

	var got domain.Todo
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, fmt.Sprintf("/todos/%d", created.ID), "", &got))
	s.Require().True(got.Completed)
}

func (s *IntegrationTestSuite) TestUpdateTodo_NotFound() {
	status := s.request(fiber.MethodPut, "/todos/999", `{"completed":true}`, nil)
	s.Require().Equal(fiber.StatusNotFound, status)
	s.Require().Zero(s.CountRows("todos"))
}
