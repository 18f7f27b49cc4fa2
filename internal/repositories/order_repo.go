package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderRepository interface {
	// SaveOrderTransaction records the idempotency key, the order with its items and the stock
	// decrements in one transaction. Nothing is persisted unless every step succeeds.
	SaveOrderTransaction(ctx context.Context, order *models.Order, key *models.IdempotencyKey, decrements []models.StockDecrement) (uuid.UUID, error)
	GetIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyKey, error)
	GetOrderIDByKey(ctx context.Context, key string) (uuid.UUID, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// UpdateStatus moves the order from one status to another, failing if it is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) error
}

type orderRepo struct {
	db Database
}

func NewOrderRepo(db Database) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) SaveOrderTransaction(ctx context.Context, order *models.Order, key *models.IdempotencyKey, decrements []models.StockDecrement) (id uuid.UUID, err error) {
	if order == nil || key == nil {
		return uuid.Nil, fmt.Errorf("%w: order and idempotency key are required", models.ErrInvalidArgument)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin order transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	keyQuery := `INSERT INTO idempotency_keys (key, created_at) VALUES ($1, $2)`
	if _, err = tx.Exec(ctx, keyQuery, key.Key, key.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("%w: key %q", models.ErrIdempotencyConflict, key.Key)
		}
		return uuid.Nil, fmt.Errorf("insert idempotency key %q: %w", key.Key, err)
	}

	orderQuery := `
		INSERT INTO orders (id, customer_id, idempotency_key, total_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err = tx.Exec(ctx, orderQuery, order.ID, order.CustomerID, key.Key, order.TotalAmount, order.Status, order.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("%w: key %q", models.ErrIdempotencyConflict, key.Key)
		}
		return uuid.Nil, fmt.Errorf("insert order %s: %w", order.ID, err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, position, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, item := range order.Items {
		if _, err = tx.Exec(ctx, itemQuery, item.ID, order.ID, i, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return uuid.Nil, fmt.Errorf("insert item for product %s: %w", item.ProductID, err)
		}
	}

	// Fixed lock order across concurrent commits
	sorted := make([]models.StockDecrement, len(decrements))
	copy(sorted, decrements)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ProductID.String() < sorted[j].ProductID.String()
	})

	for _, d := range sorted {
		if err = decrementStock(ctx, tx, d); err != nil {
			return uuid.Nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("%w: key %q", models.ErrIdempotencyConflict, key.Key)
		}
		return uuid.Nil, fmt.Errorf("commit order %s: %w", order.ID, err)
	}
	return order.ID, nil
}

// decrementStock applies d only while enough stock remains, reporting the live shortfall otherwise.
func decrementStock(ctx context.Context, tx pgx.Tx, d models.StockDecrement) error {
	if d.Quantity <= 0 {
		return fmt.Errorf("%w: decrement for product %s has quantity %d", models.ErrInvalidArgument, d.ProductID, d.Quantity)
	}
	query := `
		UPDATE products
		SET stock_qty = stock_qty - $1
		WHERE id = $2 AND stock_qty >= $1
	`
	tag, err := tx.Exec(ctx, query, d.Quantity, d.ProductID)
	if err != nil {
		return fmt.Errorf("decrement stock for product %s: %w", d.ProductID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var name string
	var available int
	err = tx.QueryRow(ctx, `SELECT name, stock_qty FROM products WHERE id = $1`, d.ProductID).Scan(&name, &available)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrProductNotFound, d.ProductID)
	}
	if err != nil {
		return fmt.Errorf("read stock for product %s: %w", d.ProductID, err)
	}
	return &models.InsufficientStockError{
		ProductID:   d.ProductID,
		ProductName: name,
		Available:   available,
		Requested:   d.Quantity,
	}
}

// GetIdempotencyKey returns the key record, or nil when the key was never recorded
func (r *orderRepo) GetIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyKey, error) {
	record := &models.IdempotencyKey{}
	query := `SELECT key, created_at FROM idempotency_keys WHERE key = $1`
	err := r.db.QueryRow(ctx, query, key).Scan(&record.Key, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *orderRepo) GetOrderIDByKey(ctx context.Context, key string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	query := `SELECT id FROM orders WHERE idempotency_key = $1`
	err := r.db.QueryRow(ctx, query, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order := &models.Order{}
	query := `
		SELECT id, customer_id, idempotency_key, total_amount, status, created_at
		FROM orders
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&order.ID, &order.CustomerID, &order.IdempotencyKey, &order.TotalAmount, &order.Status, &order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`
	rows, err := r.db.Query(ctx, itemsQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	order.Items = []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	return order, rows.Err()
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) error {
	query := `UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`
	tag, err := r.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current models.OrderStatus
	err = r.db.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: order %s is %s, not %s", models.ErrInvalidStatusTransition, id, current, from)
}
