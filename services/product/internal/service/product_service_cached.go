package service

import (
	"context"

	"github.com/sakashimaa/crud-services/pkg/cache"
	"github.com/sakashimaa/crud-services/services/product/internal/domain"
)

const cachePrefix = "product"

type cachedProductService struct {
	next  ProductService
	cache *cache.Cache
}

func NewCachedProductService(next ProductService, c *cache.Cache) ProductService {
	return &cachedProductService{
		next:  next,
		cache: c,
	}
}

func (s *cachedProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.next.List(ctx)
}

func (s *cachedProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	key := cache.Key(cachePrefix, id)

	var product domain.Product
	if s.cache.Get(ctx, key, &product) {
		return &product, nil
	}

	res, err := s.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, res)

	return res, nil
}

func (s *cachedProductService) Create(ctx context.Context, input *domain.ProductInput) (*domain.Product, error) {
	return s.next.Create(ctx, input)
}

func (s *cachedProductService) Update(ctx context.Context, id int64, input *domain.ProductInput) error {
	if err := s.next.Update(ctx, id, input); err != nil {
		return err
	}

	s.cache.Delete(ctx, cache.Key(cachePrefix, id))
	return nil
}

func (s *cachedProductService) Delete(ctx context.Context, id int64) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Delete(ctx, cache.Key(cachePrefix, id))
	return nil
}

func EvictProduct(ctx context.Context, c *cache.Cache, id int64) error {
	return c.Evict(ctx, cache.Key(cachePrefix, id))
}
