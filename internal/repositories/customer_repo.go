package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	Update(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Customer, error)
}

type customerRepo struct {
	db Database
}

func NewCustomerRepo(db Database) CustomerRepository {
	return &customerRepo{db: db}
}

func (r *customerRepo) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (id, name, email, document, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, customer.ID, customer.Name, customer.Email, customer.Document, customer.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: customer document %s already registered", models.ErrConflict, customer.Document)
	}
	return err
}

func (r *customerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer := &models.Customer{}
	query := `
		SELECT id, name, email, document, created_at
		FROM customers
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&customer.ID, &customer.Name, &customer.Email, &customer.Document, &customer.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrCustomerNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *customerRepo) Update(ctx context.Context, customer *models.Customer) error {
	query := `
		UPDATE customers
		SET name = $1, email = $2, document = $3
		WHERE id = $4
	`
	tag, err := r.db.Exec(ctx, query, customer.Name, customer.Email, customer.Document, customer.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: customer document %s already registered", models.ErrConflict, customer.Document)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", models.ErrCustomerNotFound, customer.ID)
	}
	return nil
}

func (r *customerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM customers WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: customer %s has orders", models.ErrConflict, id)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", models.ErrCustomerNotFound, id)
	}
	return nil
}

func (r *customerRepo) List(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	limit, offset = normalizePage(limit, offset, 50)
	query := `
		SELECT id, name, email, document, created_at
		FROM customers
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []*models.Customer{}
	for rows.Next() {
		customer := &models.Customer{}
		if err := rows.Scan(&customer.ID, &customer.Name, &customer.Email, &customer.Document, &customer.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}
