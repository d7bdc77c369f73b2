package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	"github.com/sakashimaa/crud-services/services/product/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type SellerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, input *domain.SellerInput) (*domain.Seller, error)
}

type sellerRepo struct {
	tracer trace.Tracer
	logger *zap.Logger
}

func NewSellerRepository(logger *zap.Logger) SellerRepository {
	return &sellerRepo{
		logger: logger,
		tracer: otel.Tracer("repository/seller_repo"),
	}
}

func (r *sellerRepo) Create(ctx context.Context, tx pgx.Tx, input *domain.SellerInput) (*domain.Seller, error) {
	ctx, span := r.tracer.Start(ctx, "SellerRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("username", *input.Username),
	)

	query := `
		INSERT INTO sellers (username, age, email)
		VALUES ($1, $2, $3)
		RETURNING id, username, age, email
	`

	var res domain.Seller
	err := tx.QueryRow(ctx, query, input.Username, input.Age, input.Email).
		Scan(&res.ID, &res.Username, &res.Age, &res.Email)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating seller",
			zap.Error(err),
		)

		return nil, fmt.Errorf("error creating seller: %w", err)
	}

	return &res, nil
}
