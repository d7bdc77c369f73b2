package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	"github.com/sakashimaa/crud-services/services/todo/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type TodoRepository interface {
	List(ctx context.Context) ([]domain.Todo, error)
	ListByCompleted(ctx context.Context, completed bool) ([]domain.Todo, error)
	GetByID(ctx context.Context, id int64) (*domain.Todo, error)
	Create(ctx context.Context, tx pgx.Tx, input *domain.CreateTodoInput) (*domain.Todo, error)
	Update(ctx context.Context, tx pgx.Tx, id int64, patch *domain.TodoPatch) (*domain.Todo, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) (*domain.Todo, error)
}

const todoColumns = `id, title, description, completed, created_at, updated_at`

// Strictly increasing even when two updates land within the clock's resolution.
const touchUpdatedAt = `updated_at = GREATEST(clock_timestamp(), updated_at + interval '1 microsecond')`

type todoRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewTodoRepository(pool *pgxpool.Pool, logger *zap.Logger) TodoRepository {
	return &todoRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/todo_repo"),
	}
}

func scanTodo(row pgx.Row, t *domain.Todo) error {
	return row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Completed,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

func (r *todoRepo) List(ctx context.Context) ([]domain.Todo, error) {
	ctx, span := r.tracer.Start(ctx, "TodoRepository.List")
	defer span.End()

	query := `SELECT ` + todoColumns + ` FROM todos ORDER BY id`

	return r.query(ctx, span, query)
}

func (r *todoRepo) ListByCompleted(ctx context.Context, completed bool) ([]domain.Todo, error) {
	ctx, span := r.tracer.Start(ctx, "TodoRepository.ListByCompleted")
	defer span.End()

	span.SetAttributes(
		attribute.Bool("completed", completed),
	)

	query := `SELECT ` + todoColumns + ` FROM todos WHERE completed = $1 ORDER BY id`

	return r.query(ctx, span, query, completed)
}

func (r *todoRepo) query(ctx context.Context, span trace.Span, query string, args ...any) ([]domain.Todo, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Error selecting todos", zap.Error(err))

		return nil, fmt.Errorf("error selecting todos: %w", err)
	}
	defer rows.Close()

	todos := make([]domain.Todo, 0)
	for rows.Next() {
		var t domain.Todo
		if err := scanTodo(rows, &t); err != nil {
			span.RecordError(err)

			mylogger.Error(ctx, r.logger, "Failed to scan rows", zap.Error(err))

			return nil, fmt.Errorf("error scanning rows: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Rows iteration error", zap.Error(err))

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	span.SetAttributes(
		attribute.Int("result_count", len(todos)),
	)

	return todos, nil
}

func (r *todoRepo) GetByID(ctx context.Context, id int64) (*domain.Todo, error) {
	ctx, span := r.tracer.Start(ctx, "TodoRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`

	var res domain.Todo
	if err := scanTodo(r.pool.QueryRow(ctx, query, id), &res); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTodoNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error get by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting todo: %w", err)
	}

	return &res, nil
}

func (r *todoRepo) Create(ctx context.Context, tx pgx.Tx, input *domain.CreateTodoInput) (*domain.Todo, error) {
	ctx, span := r.tracer.Start(ctx, "TodoRepository.Create")
	defer span.End()

	query := `
		INSERT INTO todos (title, description)
		VALUES ($1, $2)
		RETURNING ` + todoColumns

	var res domain.Todo
	if err := scanTodo(tx.QueryRow(ctx, query, input.Title, input.Description), &res); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating todo",
			zap.Error(err),
		)

		return nil, fmt.Errorf("error creating todo: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("id", res.ID),
	)

	return &res, nil
}

func (r *todoRepo) Update(ctx context.Context, tx pgx.Tx, id int64, patch *domain.TodoPatch) (*domain.Todo, error) {
	ctx, span := r.tracer.Start(ctx, "TodoRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	var updates []string
	var args []any
	argID := 1

	if patch.Title.Set {
		updates = append(updates, fmt.Sprintf("title = $%d", argID))
		args = append(args, patch.Title.Value)
		argID++
	}

	if patch.Description.Set {
		updates = append(updates, fmt.Sprintf("description = $%d", argID))
		args = append(args, patch.Description.Ptr())
		argID++
	}

	if patch.Completed.Set {
		updates = append(updates, fmt.Sprintf("completed = $%d", argID))
		args = append(args, patch.Completed.Value)
		argID++
	}

	updates = append(updates, touchUpdatedAt)

	query := `UPDATE todos SET ` + strings.Join(updates, ", ") +
		fmt.Sprintf(" WHERE id = $%d RETURNING ", argID) + todoColumns
	args = append(args, id)

	var res domain.Todo
	if err := scanTodo(tx.QueryRow(ctx, query, args...), &res); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTodoNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update todo",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error updating todo: %w", err)
	}

	return &res, nil
}

func (r *todoRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) (*domain.Todo, error) {
	ctx, span := r.tracer.Start(ctx, "TodoRepository.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `DELETE FROM todos WHERE id = $1 RETURNING ` + todoColumns

	var res domain.Todo
	if err := scanTodo(tx.QueryRow(ctx, query, id), &res); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTodoNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error deleting todo by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error deleting todo by id: %w", err)
	}

	return &res, nil
}
