package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
)

type CustomerService interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	Update(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Customer, error)
}

type customerService struct {
	customerRepo repositories.CustomerRepository
}

func NewCustomerService(customerRepo repositories.CustomerRepository) CustomerService {
	return &customerService{customerRepo: customerRepo}
}

func validateCustomer(customer *models.Customer) error {
	if customer == nil {
		return fmt.Errorf("%w: customer is required", models.ErrInvalidArgument)
	}
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Email = strings.TrimSpace(customer.Email)
	customer.Document = strings.TrimSpace(customer.Document)
	if customer.Name == "" {
		return fmt.Errorf("%w: customer name is required", models.ErrInvalidArgument)
	}
	if customer.Email == "" || !strings.Contains(customer.Email, "@") {
		return fmt.Errorf("%w: customer email %q is invalid", models.ErrInvalidArgument, customer.Email)
	}
	if customer.Document == "" {
		return fmt.Errorf("%w: customer document is required", models.ErrInvalidArgument)
	}
	return nil
}

func (s *customerService) Create(ctx context.Context, customer *models.Customer) error {
	if err := validateCustomer(customer); err != nil {
		return err
	}
	customer.ID = uuid.New()
	customer.CreatedAt = time.Now().UTC()
	return s.customerRepo.Create(ctx, customer)
}

func (s *customerService) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.customerRepo.GetByID(ctx, id)
}

func (s *customerService) Update(ctx context.Context, customer *models.Customer) error {
	if err := validateCustomer(customer); err != nil {
		return err
	}
	return s.customerRepo.Update(ctx, customer)
}

func (s *customerService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.customerRepo.Delete(ctx, id)
}

func (s *customerService) List(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	return s.customerRepo.List(ctx, limit, offset)
}
