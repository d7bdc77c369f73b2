package tests

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/sakashimaa/crud-services/services/product/internal/domain"
)

func (s *IntegrationTestSuite) TestCreateProduct_FixedSellerRegardlessOfSellers() {
	// No sellers at all.
	var first domain.Product
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/product", `{"name":"A Great Chaos Vinyl","description":"Best album vinyl","price":9999}`, &first))

	// A seller exists, but not with the fixed id.
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/seller", `{"username":"ken","age":30,"email":"ken@example.com"}`, nil))
	_, err := s.DbPool.Exec(s.Ctx, `UPDATE sellers SET id = 500`)
	s.Require().NoError(err)

	var second domain.Product
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/product", `{"name":"Teen X","description":"Mixtape","price":1500}`, &second))

	for _, created := range []domain.Product{first, second} {
		var got domain.Product
		status := s.request(fiber.MethodGet, fmt.Sprintf("/product/%d", created.ID), "", &got)
		s.Require().Equal(fiber.StatusOK, status)
		s.Require().Equal(int64(defaultSellerID), got.SellerID)
		s.Require().Equal(created, got)
	}
}

func (s *IntegrationTestSuite) TestCreateProduct_PublishesEvent() {
	var created domain.Product
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/product", `{"name":"Vinyl","description":"LP","price":100}`, &created))

	s.RequireEventPublished(created.ID, "ProductCreated")
}

func (s *IntegrationTestSuite) TestCreateProduct_Validation() {
	status := s.request(fiber.MethodPost, "/product", `{"name":"Vinyl"}`, nil)
	s.Require().Equal(fiber.StatusUnprocessableEntity, status)
	s.Require().Zero(s.CountRows("products"))
}

func (s *IntegrationTestSuite) TestCreateProductContextTimeout_Failed() {
	ctxTimeout, cancel := context.WithTimeout(s.Ctx, time.Nanosecond)
	defer cancel()

	name, description, price := "Vinyl", "LP", int64(100)
	product, err := s.ProductService.Create(ctxTimeout, &domain.ProductInput{
		Name:        &name,
		Description: &description,
		Price:       &price,
	})
	s.Require().Error(err)
	s.Require().ErrorIs(err, context.DeadlineExceeded)
	s.Require().Nil(product)
}

func (s *IntegrationTestSuite) TestListProducts() {
	var empty []domain.Product
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, "/products", "", &empty))
	s.Require().Empty(empty)

	var expected []domain.Product
	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"name":"product %d","description":"d","price":%d}`, i, 100*(i+1))

		var created domain.Product
		s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/product", body, &created))
		expected = append(expected, created)
	}

	var all []domain.Product
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, "/products", "", &all))
	if diff := cmp.Diff(expected, all); diff != "" {
		s.T().Errorf("listed products mismatch (-want +got):\n%s", diff)
	}
}

func (s *IntegrationTestSuite) TestGetProduct_NotFound() {
	var body map[string]string
	s.Require().Equal(fiber.StatusNotFound, s.request(fiber.MethodGet, "/product/98765", "", &body))
	s.Require().Equal("Product not found", body["detail"])
}

func (s *IntegrationTestSuite) TestUpdateProduct() {
	var created domain.Product
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/product", `{"name":"Vinyl","description":"LP","price":100}`, &created))

	// Warm the cache so a missed eviction would surface as a stale read.
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, fmt.Sprintf("/product/%d", created.ID), "", nil))

	var msg map[string]string
	status := s.request(fiber.MethodPut, fmt.Sprintf("/product/%d", created.ID), `{"name":"CD","description":"Disc","price":50}`, &msg)
	s.Require().Equal(fiber.StatusOK, status)
	s.Require().Equal("Product successfully updated", msg["message"])

	var got domain.Product
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, fmt.Sprintf("/product/%d", created.ID), "", &got))
	s.Require().Equal("CD", got.Name)
	s.Require().Equal("Disc", got.Description)
	s.Require().Equal(int64(50), got.Price)
	s.Require().Equal(created.SellerID, got.SellerID)
}

func (s *IntegrationTestSuite) TestUpdateProduct_MissingRowReportsSuccess() {
	var msg map[string]string
	status := s.request(fiber.MethodPut, "/product/424242", `{"name":"CD","description":"Disc","price":50}`, &msg)
	s.Require().Equal(fiber.StatusOK, status)
	s.Require().Equal("Product successfully updated", msg["message"])
	s.Require().Zero(s.CountRows("products"))
}

func (s *IntegrationTestSuite) TestDeleteProduct() {
	var created domain.Product
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodPost, "/product", `{"name":"Vinyl","description":"LP","price":100}`, &created))
	s.Require().Equal(fiber.StatusOK, s.request(fiber.MethodGet, fmt.Sprintf("/product/%d", created.ID), "", nil))

	for i := 0; i < 2; i++ {
		var msg map[string]string
		status := s.request(fiber.MethodDelete, fmt.Sprintf("/product/%d", created.ID), "", &msg)
		s.Require().Equal(fiber.StatusOK, status)
		s.Require().Equal("Product deleted", msg["message"])
	}

	s.Require().Zero(s.CountRows("products"))
	s.Require().Equal(fiber.StatusNotFound, s.request(fiber.MethodGet, fmt.Sprintf("/product/%d", created.ID), "", nil))
}
