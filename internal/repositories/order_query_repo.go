package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderQueryRepository serves read-only order projections.
type OrderQueryRepository interface {
	ListOrders(ctx context.Context, filter *models.OrderListFilter) (*models.PagedResult[models.OrderListItem], error)
	GetOrderDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error)
}

type orderQueryRepo struct {
	db Database
}

func NewOrderQueryRepo(db Database) OrderQueryRepository {
	return &orderQueryRepo{db: db}
}

func (r *orderQueryRepo) ListOrders(ctx context.Context, filter *models.OrderListFilter) (*models.PagedResult[models.OrderListItem], error) {
	if filter == nil {
		filter = &models.OrderListFilter{}
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset, 10)

	where := ` WHERE 1 = 1`
	args := []any{}
	conditionCount := 0

	if filter.CustomerName != "" {
		conditionCount++
		where += fmt.Sprintf(` AND c.name ILIKE $%d`, conditionCount)
		args = append(args, "%"+filter.CustomerName+"%")
	}
	if filter.Status != nil {
		conditionCount++
		where += fmt.Sprintf(` AND o.status = $%d`, conditionCount)
		args = append(args, string(*filter.Status))
	}

	from := ` FROM orders o LEFT JOIN customers c ON c.id = o.customer_id`

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	direction := "ASC"
	if filter.SortBy == models.SortDateDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT o.id, COALESCE(c.name, $%d), o.total_amount, o.status, o.created_at%s%s ORDER BY o.created_at %s, o.id %s LIMIT $%d OFFSET $%d`,
		conditionCount+1, from, where, direction, direction, conditionCount+2, conditionCount+3)
	pageArgs := append(append([]any{}, args...), models.UnknownCustomerName, limit, offset)

	rows, err := r.db.Query(ctx, query, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	items := []models.OrderListItem{}
	for rows.Next() {
		var item models.OrderListItem
		if err := rows.Scan(&item.ID, &item.CustomerName, &item.TotalAmount, &item.Status, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PagedResult[models.OrderListItem]{
		Items:      items,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

func (r *orderQueryRepo) GetOrderDetails(ctx context.Context, id uuid.UUID) (*models.OrderDetails, error) {
	details := &models.OrderDetails{}
	query := `
		SELECT o.id, o.customer_id, COALESCE(c.name, $2), COALESCE(c.document, ''), o.total_amount, o.status, o.created_at
		FROM orders o
		LEFT JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
	`
	err := r.db.QueryRow(ctx, query, id, models.UnknownCustomerName).Scan(
		&details.ID, &details.CustomerID, &details.CustomerName, &details.CustomerDocument,
		&details.TotalAmount, &details.Status, &details.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	itemsQuery := `
		SELECT oi.product_id, COALESCE(p.name, $2), oi.quantity, oi.unit_price, oi.line_total
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.position ASC
	`
	rows, err := r.db.Query(ctx, itemsQuery, id, models.UnknownProductName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details.Items = []models.OrderDetailsItem{}
	for rows.Next() {
		var item models.OrderDetailsItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		details.Items = append(details.Items, item)
	}
	return details, rows.Err()
}
