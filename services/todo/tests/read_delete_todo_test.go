package tests

import (
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/crud-services/services/todo/internal/domain"
)

func (s *IntegrationTestSuite) TestGetTodo_NotFoundHasNoSideEffects() {
	var body map[string]string
	status := s.request(fiber.MethodGet, "/todos/12345", "", &body)
	s.Require().Equal(fiber.StatusNotFound, status)
	s.Require().Equal("Todo not found", body["detail"])
	s.Require().Zero(s.CountRows("todos"))
}

func (s *IntegrationTestSuite) TestDeleteTodo_RemovesExactlyOneRow() {
	var first, second domain.Todo
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/todos", `{"title":"first"}`, &first))
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/todos", `{"title":"second"}`, &second))

	// Cached before the delete, so a stale entry would be caught below.
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, fmt.Sprintf("/todos/%d", first.ID), "", nil))

	var body map[string]string
	status := s.request(fiber.MethodDelete, fmt.Sprintf("/todos/%d", first.ID), "", &body)
	s.Require().Equal(fiber.StatusOK, status)
	s.Require().Equal("Todo 'first' deleted successfully", body["message"])
	s.Require().Equal(1, s.CountRows("todos"))

	s.Require().Equal(fiber.StatusNotFound, s.request(fiber.MethodGet, fmt.Sprintf("/todos/%d", first.ID), "", nil))
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, fmt.Sprintf("/todos/%d", second.ID), "", nil))
	s.Require().Equal(fiber.StatusNotFound, s.request(fiber.MethodDelete, fmt.Sprintf("/todos/%d", first.ID), "", nil))
}

func (s *IntegrationTestSuite) TestCompletedAndPendingPartitionAll() {
	for i := 0; i < 7; i++ {
		var created domain.Todo
		s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/todos", fmt.Sprintf(`{"title":"todo %d"}`, i), &created))

		if i%3 == 0 {
			s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPut, fmt.Sprintf("/todos/%d", created.ID), `{"completed":true}`, nil))
		}
	}

	var all, completed, pending []domain.Todo
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, "/todos", "", &all))
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, "/todos/completed", "", &completed))
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, "/todos/pending", "", &pending))

	ids := func(todos []domain.Todo) []int64 {
		res := make([]int64, 0, len(todos))
		for _, t := range todos {
			res = append(res, t.ID)
		}
		sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
		return res
	}

	union := append(ids(completed), ids(pending)...)
	sort.Slice(union, func(i, j int) bool { return union[i] < union[j] })

	s.Require().Equal(ids(all), union)
	s.Require().Len(completed, 3)
	s.Require().Len(pending, 4)

	for _, t := range completed {
		s.Require().True(t.Completed)
	}
	for _, t := range pending {
		s.Require().False(t.Completed)
	}
}
