package tests

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	outbox "github.com/sakashimaa/crud-services/pkg/outbox/repository"
	"github.com/sakashimaa/crud-services/pkg/outbox/worker"
	"github.com/sakashimaa/crud-services/services/todo/internal/domain"
	"go.uber.org/zap"
)

func (s *IntegrationTestSuite) TestCreateTodo_TitleOnly() {
	var created domain.Todo
	status := s.request(fiber.MethodPost, "/todos", `{"title":"Buy milk"}`, &created)
	s.Require().Equal(fiber.StatusOK, status)

	s.Require().NotZero(created.ID)
	s.Require().Equal("Buy milk", created.Title)
	s.Require().Nil(created.Description)
	s.Require().False(created.Completed)
	s.Require().True(created.CreatedAt.Equal(created.UpdatedAt))

	var dbTitle string
	var dbDescription *string
	err := s.DbPool.QueryRow(s.Ctx, `SELECT title, description FROM todos WHERE id = $1`, created.ID).
		Scan(&dbTitle, &dbDescription)
	s.Require().NoError(err)
	s.Require().Equal("Buy milk", dbTitle)
	s.Require().Nil(dbDescription)
}

func (s *IntegrationTestSuite) TestCreateTodo_PublishesEvent() {
	var created domain.Todo
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/todos", `{"title":"Walk dog","description":"park"}`, &created))

	s.RequireEventPublished(created.ID, "TodoCreated")
}

func (s *IntegrationTestSuite) TestCreateTodo_MissingTitle() {
	status := s.request(fiber.MethodPost, "/todos", `{"description":"no title"}`, nil)
	s.Require().Equal(fiber.StatusUnprocessableEntity, status)
	s.Require().Zero(s.CountRows("todos"))
}

func (s *IntegrationTestSuite) TestCreateTodoContextTimeout_Failed() {
	ctxTimeout, cancel := context.WithTimeout(s.Ctx, time.Nanosecond)
	defer cancel()

	title := "Too late"
	_, err := s.TodoService.Create(ctxTimeout, &domain.CreateTodoInput{Title: &title})
	s.Require().Error(err)
	s.Require().ErrorIs(err, context.DeadlineExceeded)
	s.Require().Zero(s.CountRows("todos"))
}

func (s *IntegrationTestSuite) TestOutboxPurge_RemovesPublishedAndProcessedEvents() {
	var created domain.Todo
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/todos", `{"title":"Old news"}`, &created))
	s.RequireEventPublished(created.ID, "TodoCreated")

	_, err := s.DbPool.Exec(s.Ctx, `
		INSERT INTO processed_events (consumer, event_id, processed_at)
		VALUES ('purge-test', 1, NOW() - INTERVAL '1 hour'),
		       ('purge-test', 2, NOW() + INTERVAL '1 hour')
	`)
	s.Require().NoError(err)

	logger := zap.NewNop()
	purger := worker.NewOutboxProcessor(
		s.DbPool,
		outbox.NewOutboxRepository(logger),
		s.TestProducer,
		logger,
		worker.WithRetention(time.Nanosecond),
	)

	s.Require().NoError(purger.Purge(s.Ctx))
	s.Require().Zero(s.CountRows("outbox WHERE published_at IS NOT NULL"))

	rows, err := s.DbPool.Query(s.Ctx, `SELECT event_id FROM processed_events WHERE consumer = 'purge-test'`)
	s.Require().NoError(err)
	remaining, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	s.Require().NoError(err)
	s.Require().Equal([]int64{2}, remaining)
}
