package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/sakashimaa/crud-services/pkg/db"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	"github.com/sakashimaa/crud-services/services/product/internal/domain"
	"github.com/sakashimaa/crud-services/services/product/internal/repository"
	"go.uber.org/zap"
)

type SellerService interface {
	Create(ctx context.Context, input *domain.SellerInput) (*domain.Seller, error)
}

type sellerService struct {
	sellerRepo repository.SellerRepository
	outboxRepo OutboxWriter
	pool       db.TxBeginner
	logger     *zap.Logger
}

func NewSellerService(
	sellerRepo repository.SellerRepository,
	outboxRepo OutboxWriter,
	pool db.TxBeginner,
	logger *zap.Logger,
) SellerService {
	return &sellerService{
		sellerRepo: sellerRepo,
		outboxRepo: outboxRepo,
		pool:       pool,
		logger:     logger,
	}
}

func (s *sellerService) Create(ctx context.Context, input *domain.SellerInput) (*domain.Seller, error) {
	var created *domain.Seller

	err := db.WithTx(ctx, s.pool, s.logger, func(tx pgx.Tx) error {
		seller, err := s.sellerRepo.Create(ctx, tx, input)
		if err != nil {
			return err
		}

		if err := saveEvent(ctx, s.outboxRepo, s.logger, tx, sellerAggregate, seller.ID, domain.EventSellerCreated, seller); err != nil {
			return err
		}

		created = seller
		return nil
	})
	if err != nil {
		return nil, err
	}

	mylogger.Info(ctx, s.logger, "Seller created", zap.Int64("seller_id", created.ID))

	return created, nil
}
