package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/domain/repository"
	"github.com/sangkips/tillpoint/pkg/apperror"
	"github.com/sangkips/tillpoint/pkg/pagination"
)

// ProductService handles product-related operations
type ProductService struct {
	productRepo repository.ProductRepository
	log         zerolog.Logger
}

// NewProductService creates a new product service
func NewProductService(productRepo repository.ProductRepository, log zerolog.Logger) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		log:         log.With().Str("component", "products").Logger(),
	}
}

// CreateProductInput represents the create product input
type CreateProductInput struct {
	Name   string
	Price  decimal.Decimal
	Profit decimal.Decimal
}

// CreateProduct creates a new product
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*entity.Product, error) {
	var fieldErrors []apperror.FieldError
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "name", Message: "name is required"})
	}
	if input.Price.IsNegative() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "price", Message: "price must not be negative"})
	}
	if input.Profit.GreaterThan(input.Price) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "profit", Message: "profit must not exceed price"})
	}
	if len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}

	product := &entity.Product{
		Name:   name,
		Price:  input.Price,
		Profit: input.Profit,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.log.Info().Int64("product_id", product.ID).Str("name", product.Name).Msg("product created")
	return product, nil
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewNotFoundError("Product")
		}
		return nil, err
	}
	return product, nil
}

// ListProducts lists the catalog by name, one page at a time
func (s *ProductService) ListProducts(ctx context.Context, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Product], error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return pagination.Paginate(products, params), nil
}
