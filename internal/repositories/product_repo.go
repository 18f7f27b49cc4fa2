package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, error)
}

type productRepo struct {
	db Database
}

func NewProductRepo(db Database) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, sku, price, stock_qty, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, product.ID, product.Name, product.SKU, product.Price, product.StockQty, product.IsActive, product.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: product sku %s already exists", models.ErrConflict, product.SKU)
	}
	return err
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product := &models.Product{}
	query := `
		SELECT id, name, sku, price, stock_qty, is_active, created_at
		FROM products
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&product.ID, &product.Name, &product.SKU, &product.Price, &product.StockQty, &product.IsActive, &product.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, price = $2, stock_qty = $3, is_active = $4
		WHERE id = $5
	`
	tag, err := r.db.Exec(ctx, query, product.Name, product.Price, product.StockQty, product.IsActive, product.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", models.ErrProductNotFound, product.ID)
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: product %s is referenced by orders", models.ErrConflict, id)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", models.ErrProductNotFound, id)
	}
	return nil
}

// List returns products matching the filter ordered by name
func (r *productRepo) List(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, error) {
	if filter == nil {
		filter = &models.ProductFilter{}
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset, 50)

	query := `
		SELECT id, name, sku, price, stock_qty, is_active, created_at
		FROM products
		WHERE 1 = 1
	`
	args := []any{}
	conditionCount := 0

	if filter.Query != "" {
		conditionCount++
		query += fmt.Sprintf(` AND (name ILIKE $%d OR sku ILIKE $%d)`, conditionCount, conditionCount)
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.ActiveOnly {
		query += ` AND is_active = TRUE`
	}
	if filter.MaxStock != nil {
		conditionCount++
		query += fmt.Sprintf(` AND stock_qty <= $%d`, conditionCount)
		args = append(args, *filter.MaxStock)
	}

	query += fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, conditionCount+1, conditionCount+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(&product.ID, &product.Name, &product.SKU, &product.Price, &product.StockQty, &product.IsActive, &product.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}
