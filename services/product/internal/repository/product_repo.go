package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/crud-services/pkg/mylogger"
	"github.com/sakashimaa/crud-services/services/product/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Exists(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	Create(ctx context.Context, tx pgx.Tx, input *domain.ProductInput, sellerID int64) (*domain.Product, error)
	// Update and Delete report how many rows matched; zero is not an error.
	Update(ctx context.Context, tx pgx.Tx, id int64, input *domain.ProductInput) (int64, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) (int64, error)
}

const productColumns = `id, name, description, price, seller_id`

type productRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/product_repo"),
	}
}

func scanProduct(row pgx.Row, p *domain.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.SellerID)
}

func (r *productRepo) List(ctx context.Context) ([]domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.List")
	defer span.End()

	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Error getting products", zap.Error(err))

		return nil, fmt.Errorf("error selecting products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			span.RecordError(err)

			mylogger.Error(ctx, r.logger, "Failed to scan rows", zap.Error(err))

			return nil, fmt.Errorf("error scanning rows: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		mylogger.Error(ctx, r.logger, "Rows iteration error", zap.Error(err))

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	span.SetAttributes(
		attribute.Int("result_count", len(products)),
	)

	return products, nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var res domain.Product
	if err := scanProduct(r.pool.QueryRow(ctx, query, id), &res); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error get by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	return &res, nil
}

func (r *productRepo) Exists(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Exists")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		span.RecordError(err)

		return false, fmt.Errorf("error checking product existence: %w", err)
	}

	return exists, nil
}

func (r *productRepo) Create(ctx context.Context, tx pgx.Tx, input *domain.ProductInput, sellerID int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("name", *input.Name),
		attribute.Int64("seller_id", sellerID),
	)

	query := `
		INSERT INTO products (name, description, price, seller_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + productColumns

	var res domain.Product
	err := scanProduct(
		tx.QueryRow(ctx, query, input.Name, input.Description, input.Price, sellerID),
		&res,
	)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating product",
			zap.Error(err),
		)

		return nil, fmt.Errorf("error creating product: %w", err)
	}

	return &res, nil
}

func (r *productRepo) Update(ctx context.Context, tx pgx.Tx, id int64, input *domain.ProductInput) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3
		WHERE id = $4
	`

	commandTag, err := tx.Exec(ctx, query, input.Name, input.Description, input.Price, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update product",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return 0, fmt.Errorf("error updating product: %w", err)
	}

	return commandTag.RowsAffected(), nil
}

func (r *productRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	commandTag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error deleting product by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return 0, fmt.Errorf("error deleting product by id: %w", err)
	}

	return commandTag.RowsAffected(), nil
}
