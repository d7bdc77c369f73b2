package service

import (
	"context"

	"github.com/sakashimaa/crud-services/pkg/cache"
	"github.com/sakashimaa/crud-services/services/todo/internal/domain"
)

const cachePrefix = "todo"

type cachedTodoService struct {
	next  TodoService
	cache *cache.Cache
}

// NewCachedTodoService serves GetByID from Redis and evicts entries after
// every successful update or delete.
func NewCachedTodoService(next TodoService, c *cache.Cache) TodoService {
	return &cachedTodoService{
		next:  next,
		cache: c,
	}
}

func (s *cachedTodoService) List(ctx context.Context) ([]domain.Todo, error) {
	return s.next.List(ctx)
}

func (s *cachedTodoService) ListByStatus(ctx context.Context, completed bool) ([]domain.Todo, error) {
	return s.next.ListByStatus(ctx, completed)
}

func (s *cachedTodoService) GetByID(ctx context.Context, id int64) (*domain.Todo, error) {
	key := cache.Key(cachePrefix, id)

	var todo domain.Todo
	if s.cache.Get(ctx, key, &todo) {
		return &todo, nil
	}

	res, err := s.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, res)

	return res, nil
}

func (s *cachedTodoService) Create(ctx context.Context, input *domain.CreateTodoInput) (*domain.Todo, error) {
	return s.next.Create(ctx, input)
}

func (s *cachedTodoService) Update(ctx context.Context, id int64, patch *domain.TodoPatch) (*domain.Todo, error) {
	res, err := s.next.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.cache.Delete(ctx, cache.Key(cachePrefix, id))

	return res, nil
}

func (s *cachedTodoService) Delete(ctx context.Context, id int64) (*domain.Todo, error) {
	res, err := s.next.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Delete(ctx, cache.Key(cachePrefix, id))

	return res, nil
}

// EvictTodo drops the cached entry for id.
func EvictTodo(ctx context.Context, c *cache.Cache, id int64) error {
	return c.Evict(ctx, cache.Key(cachePrefix, id))
}
