package tests

import (
	"context"
	"time"

	"github.com/sakashimaa/crud-services/pkg/cache"
	"github.com/sakashimaa/crud-services/pkg/outbox/inbox"
	"github.com/sakashimaa/crud-services/services/todo/internal/domain"
	todoKafka "github.com/sakashimaa/crud-services/services/todo/internal/transport/kafka"
	"go.uber.org/zap"
)

func (s *IntegrationTestSuite) TestUpdateFromAnotherReplica_EvictsCache() {
	logger := zap.NewNop()
	consumer := todoKafka.NewConsumer(s.Cache, inbox.New(s.DbPool, "todo-test-group", logger), logger)

	ctx, cancel := context.WithCancel(s.Ctx)
	defer cancel()

	go func() {
		_ = consumer.Start(ctx, s.KafkaBrokers, "todo-test-group")
	}()

	title := "Buy milk"
	created, err := s.UncachedService.Create(s.Ctx, &domain.CreateTodoInput{Title: &title})
	s.Require().NoError(err)

	key := cache.Key("todo", created.ID)
	s.Cache.Set(s.Ctx, key, created)

	// Another replica updates the row without touching this replica's cache.
	_, err = s.UncachedService.Update(s.Ctx, created.ID, &domain.TodoPatch{Completed: domain.Some(true)})
	s.Require().NoError(err)

	s.Require().Eventually(func() bool {
		exists, err := s.Redis.Exists(s.Ctx, key).Result()
		return err == nil && exists == 0
	}, 30*time.Second, 200*time.Millisecond)

	got, err := s.TodoService.GetByID(s.Ctx, created.ID)
	s.Require().NoError(err)
	s.Require().True(got.Completed)

	s.Require().Eventually(func() bool {
		var n int
		err := s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM processed_events WHERE consumer = 'todo-test-group'`).Scan(&n)
		return err == nil && n >= 1
	}, 10*time.Second, 200*time.Millisecond)
}
