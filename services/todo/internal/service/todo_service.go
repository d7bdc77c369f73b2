package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/sakashimaa/crud-services/pkg/db"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	outboxDomain "github.com/sakashimaa/crud-services/pkg/outbox/domain"
	"github.com/sakashimaa/crud-services/services/todo/internal/domain"
	"github.com/sakashimaa/crud-services/services/todo/internal/repository"
	"go.uber.org/zap"
)

const (
	TodoTopic     = "todo_events"
	aggregateType = "todo"
)

// OutboxWriter stores an event in the caller's transaction.
type OutboxWriter interface {
	SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *outboxDomain.OutboxEvent) error
}

type TodoService interface {
	List(ctx context.Context) ([]domain.Todo, error)
	ListByStatus(ctx context.Context, completed bool) ([]domain.Todo, error)
	GetByID(ctx context.Context, id int64) (*domain.Todo, error)
	Create(ctx context.Context, input *domain.CreateTodoInput) (*domain.Todo, error)
	Update(ctx context.Context, id int64, patch *domain.TodoPatch) (*domain.Todo, error)
	Delete(ctx context.Context, id int64) (*domain.Todo, error)
}

type todoService struct {
	todoRepo   repository.TodoRepository
	outboxRepo OutboxWriter
	pool       db.TxBeginner
	logger     *zap.Logger
}

func NewTodoService(
	todoRepo repository.TodoRepository,
	outboxRepo OutboxWriter,
	pool db.TxBeginner,
	logger *zap.Logger,
) TodoService {
	return &todoService{
		todoRepo:   todoRepo,
		outboxRepo: outboxRepo,
		pool:       pool,
		logger:     logger,
	}
}

func (s *todoService) List(ctx context.Context) ([]domain.Todo, error) {
	return s.todoRepo.List(ctx)
}

func (s *todoService) ListByStatus(ctx context.Context, completed bool) ([]domain.Todo, error) {
	return s.todoRepo.ListByCompleted(ctx, completed)
}

func (s *todoService) GetByID(ctx context.Context, id int64) (*domain.Todo, error) {
	return s.todoRepo.GetByID(ctx, id)
}

func (s *todoService) Create(ctx context.Context, input *domain.CreateTodoInput) (*domain.Todo, error) {
	var created *domain.Todo

	err := db.WithTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		todo, err := s.todoRepo.Create(ctx, tx, input)
		if err != nil {
			return err
		}

		if err := s.saveEvent(ctx, tx, todo.ID, domain.EventTodoCreated, todo); err != nil {
			return err
		}

		created = todo
		return nil
	})
	if err != nil {
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Todo created", zap.Int64("todo_id", created.ID))

	return created, nil
}

func (s *todoService) Update(ctx context.Context, id int64, patch *domain.TodoPatch) (*domain.Todo, error) {
	var updated *domain.Todo

	err := db.WithTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		todo, err := s.todoRepo.Update(ctx, tx, id, patch)
		if err != nil {
			return err
		}

		if err := s.saveEvent(ctx, tx, todo.ID, domain.EventTodoUpdated, todo); err != nil {
			return err
		}

		updated = todo
		return nil
	})
	if err != nil {
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Todo updated", zap.Int64("todo_id", id))

	return updated, nil
}

func (s *todoService) Delete(ctx context.Context, id int64) (*domain.Todo, error) {
	var deleted *domain.Todo

	err := db.WithTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		todo, err := s.todoRepo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}

		event := domain.TodoDeletedEvent{ID: todo.ID, Title: todo.Title}
		if err := s.saveEvent(ctx, tx, todo.ID, domain.EventTodoDeleted, event); err != nil {
			return err
		}

		deleted = todo
		return nil
	})
	if err != nil {
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Todo deleted", zap.Int64("todo_id", id))

	return deleted, nil
}

func (s *todoService) saveEvent(ctx context.Context, tx pgx.Tx, id int64, eventType string, payload any) error {
	event, err := outboxDomain.NewOutboxEvent(ctx, TodoTopic, aggregateType, id, eventType, payload)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Error building outbox event", zap.String("event_type", eventType), zap.Error(err))
		return err
	}

	if err := s.outboxRepo.SaveOutboxEvent(ctx, tx, event); err != nil {
		mylogger.Error(ctx, s.logger, "Error saving outbox event", zap.String("event_type", eventType), zap.Error(err))
		return err
	}

	return nil
}
