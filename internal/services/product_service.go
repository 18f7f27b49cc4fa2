package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/caching"
	"storefront/internal/common"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
)

type ProductService interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, error)
	// LowStock lists active products whose stock is at or below threshold
	LowStock(ctx context.Context, threshold int) ([]*models.Product, error)
}

type productService struct {
	productRepo  repositories.ProductRepository
	cacheService caching.CacheService
}

// NewProductService creates a product service. cacheService may be nil.
func NewProductService(productRepo repositories.ProductRepository, cacheService caching.CacheService) ProductService {
	return &productService{
		productRepo:  productRepo,
		cacheService: cacheService,
	}
}

func validateProduct(product *models.Product) error {
	if product == nil {
		return fmt.Errorf("%w: product is required", models.ErrInvalidArgument)
	}
	product.Name = strings.TrimSpace(product.Name)
	product.SKU = strings.TrimSpace(product.SKU)
	if product.Name == "" {
		return fmt.Errorf("%w: product name is required", models.ErrInvalidArgument)
	}
	if product.SKU == "" {
		return fmt.Errorf("%w: product sku is required", models.ErrInvalidArgument)
	}
	if product.Price.IsNegative() {
		return fmt.Errorf("%w: price for product %s cannot be negative", models.ErrInvalidArgument, product.SKU)
	}
	if product.StockQty < 0 {
		return fmt.Errorf("%w: stock for product %s cannot be negative", models.ErrInvalidArgument, product.SKU)
	}
	return nil
}

func (s *productService) Create(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	product.ID = uuid.New()
	product.CreatedAt = time.Now().UTC()
	return s.productRepo.Create(ctx, product)
}

// GetByID reads through the product cache
func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	logger := common.LoggerFromContext(ctx).WithField("product_id", id)
	if s.cacheService != nil {
		cached, err := s.cacheService.GetProduct(ctx, id)
		if err != nil {
			logger.WithError(err).Warn("Product cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cacheService != nil {
		if err := s.cacheService.SetProduct(ctx, product); err != nil {
			logger.WithError(err).Warn("Product cache write failed")
		}
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	if err := s.productRepo.Update(ctx, product); err != nil {
		return err
	}
	s.evict(ctx, product.ID)
	return nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

func (s *productService) List(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, error) {
	return s.productRepo.List(ctx, filter)
}

func (s *productService) LowStock(ctx context.Context, threshold int) ([]*models.Product, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("%w: threshold cannot be negative", models.ErrInvalidArgument)
	}
	return s.productRepo.List(ctx, &models.ProductFilter{ActiveOnly: true, MaxStock: &threshold, Limit: 1000})
}

func (s *productService) evict(ctx context.Context, id uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.DeleteProduct(ctx, id); err != nil {
		common.LoggerFromContext(ctx).WithError(err).WithField("product_id", id).Warn("Failed to evict cached product")
	}
}
