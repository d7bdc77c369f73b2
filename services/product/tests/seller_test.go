package tests

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/crud-services/services/product/internal/domain"
)

func (s *IntegrationTestSuite) TestCreateSeller() {
	var seller domain.Seller
	status := s.request(fiber.MethodPost, "/seller", `{"username":"ken","age":30,"email":"ken@example.com"}`, &seller)
	s.Require().Equal(fiber.StatusOK, status)
	s.Require().NotZero(seller.ID)
	s.Require().Equal("ken", seller.Username)
	s.Require().Equal(int32(30), seller.Age)

	var dbEmail string
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT email FROM sellers WHERE id = $1`, seller.ID).Scan(&dbEmail))
	s.Require().Equal("ken@example.com", dbEmail)

	var events int
	s.Require().NoError(s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM outbox WHERE event_type = 'SellerCreated'`).Scan(&events))
	s.Require().Equal(1, events)
}

func (s *IntegrationTestSuite) TestLogin_StoresNothing() {
	var echoed domain.Login
	status := s.request(fiber.MethodPost, "/login", `{"username":"ken","password":"hunter2"}`, &echoed)
	s.Require().Equal(fiber.StatusOK, status)
	s.Require().Equal("ken", *echoed.Username)
	s.Require().Equal("hunter2", *echoed.Password)

	s.Require().Zero(s.CountRows("sellers"))
	s.Require().Zero(s.CountRows("products"))
}
