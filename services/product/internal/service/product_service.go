package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/sakashimaa/crud-services/pkg/db"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	outboxDomain "github.com/sakashimaa/crud-services/pkg/outbox/domain"
	"github.com/sakashimaa/crud-services/services/product/internal/domain"
	"github.com/sakashimaa/crud-services/services/product/internal/repository"
	"go.uber.org/zap"
)

const (
	ProductTopic = "product_events"

	productAggregate = "product"
	sellerAggregate  = "seller"
)

// OutboxWriter stores an event in the caller's transaction.
type OutboxWriter interface {
	SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *outboxDomain.OutboxEvent) error
}

type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, input *domain.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id int64, input *domain.ProductInput) error
	Delete(ctx context.Context, id int64) error
}

type productService struct {
	productRepo     repository.ProductRepository
	outboxRepo      OutboxWriter
	pool            db.TxBeginner
	defaultSellerID int64
	logger          *zap.Logger
}

func NewProductService(
	productRepo repository.ProductRepository,
	outboxRepo OutboxWriter,
	pool db.TxBeginner,
	defaultSellerID int64,
	logger *zap.Logger,
) ProductService {
	return &productService{
		productRepo:     productRepo,
		outboxRepo:      outboxRepo,
		pool:            pool,
		defaultSellerID: defaultSellerID,
		logger:          logger,
	}
}

func (s *productService) List(ctx context.Context) ([]domain.Product, error) {
	return s.productRepo.List(ctx)
}

func (s *productService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

// Create stores the product under the configured default seller. The seller
// is not looked up.
func (s *productService) Create(ctx context.Context, input *domain.ProductInput) (*domain.Product, error) {
	var created *domain.Product

	err := db.WithTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		product, err := s.productRepo.Create(ctx, tx, input, s.defaultSellerID)
		if err != nil {
			return err
		}

		if err := saveEvent(ctx, s.outboxRepo, s.logger, tx, productAggregate, product.ID, domain.EventProductCreated, product); err != nil {
			return err
		}

		created = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Product created", zap.Int64("product_id", created.ID))

	return created, nil
}

// Update overwrites name, description and price. A missing row is only
// logged: the caller gets the same success as for an existing one.
func (s *productService) Update(ctx context.Context, id int64, input *domain.ProductInput) error {
	return db.WithTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		exists, err := s.productRepo.Exists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			mylogger.Warn(ctx, s.logger, "Updating product that does not exist", zap.Int64("product_id", id))
		}

		affected, err := s.productRepo.Update(ctx, tx, id, input)
		if err != nil {
			return err
		}

		event := domain.ProductUpdatedEvent{
			ID:          id,
			Name:        *input.Name,
			Description: *input.Description,
			Price:       *input.Price,
			Matched:     affected > 0,
		}

		return saveEvent(ctx, s.outboxRepo, s.logger, tx, productAggregate, id, domain.EventProductUpdated, event)
	})
}

// Delete removes the row if present. Deleting a missing id succeeds.
func (s *productService) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		affected, err := s.productRepo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			mylogger.Warn(ctx, s.logger, "Deleting product that does not exist", zap.Int64("product_id", id))
		}

		event := domain.ProductDeletedEvent{ID: id, Matched: affected > 0}

		return saveEvent(ctx, s.outboxRepo, s.logger, tx, productAggregate, id, domain.EventProductDeleted, event)
	})
}

func saveEvent(
	ctx context.Context,
	repo OutboxWriter,
	logger *zap.Logger,
	tx pgx.Tx,
	aggregateType string,
	id int64,
	eventType string,
	payload any,
) error {
	event, err := outboxDomain.NewOutboxEvent(ctx, ProductTopic, aggregateType, id, eventType, payload)
	if err != nil {
		mylogger.Error(ctx, logger, "Error building outbox event", zap.String("event_type", eventType), zap.Error(err))
		return err
	}

	if err := repo.SaveOutboxEvent(ctx, tx, event); err != nil {
		mylogger.Error(ctx, logger, "Error saving outbox event", zap.String("event_type", eventType), zap.Error(err))
		return err
	}

	return nil
}
