package handlers

import (
	"net/http"
	"strings"

	"storefront/internal/common"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/labstack/echo/v4"
)

// OrderHandlers handles HTTP requests for orders
type OrderHandlers struct {
	orderService services.OrderService
}

// NewOrderHandlers creates a new order handlers instance
func NewOrderHandlers(orderService services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		orderService: orderService,
	}
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	CustomerID string                    `json:"customer_id"`
	Items      *[]createOrderItemRequest `json:"items"`
}

// CreateOrder handles POST /orders
func (h *OrderHandlers) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	key := strings.TrimSpace(c.Request().Header.Get(common.IdempotencyKeyHeader))
	if key == "" {
		return common.SendValidationError(c, common.IdempotencyKeyHeader, "header is required")
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	customerID, err := common.ValidateUUID(req.CustomerID, "customer_id")
	if err != nil {
		return common.SendValidationError(c, "customer_id", err.Error())
	}

	if req.Items == nil {
		return common.SendValidationError(c, "items", "items is required")
	}

	lines := make([]models.OrderLine, 0, len(*req.Items))
	for _, item := range *req.Items {
		productID, err := common.ValidateUUID(item.ProductID, "product_id")
		if err != nil {
			return common.SendValidationError(c, "items", err.Error())
		}
		lines = append(lines, models.OrderLine{ProductID: productID, Quantity: item.Quantity})
	}

	id, err := h.orderService.CreateOrder(ctx, customerID, lines, key)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id": id,
	})
}

// GetOrders handles GET /orders
func (h *OrderHandlers) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()

	limit, offset, err := common.ParsePagination(c.QueryParam("limit"), c.QueryParam("offset"), 10)
	if err != nil {
		return common.SendValidationError(c, "pagination", err.Error())
	}

	filter := &models.OrderListFilter{
		CustomerName: c.QueryParam("customer_name"),
		SortBy:       c.QueryParam("sort_by"),
		Limit:        limit,
		Offset:       offset,
	}
	if raw := c.QueryParam("status"); raw != "" {
		status, err := models.ParseOrderStatus(raw)
		if err != nil {
			return common.SendValidationError(c, "status", err.Error())
		}
		filter.Status = &status
	}

	result, err := h.orderService.ListOrders(ctx, filter)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// GetOrderByID handles GET /orders/:id
func (h *OrderHandlers) GetOrderByID(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "order_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	details, err := h.orderService.GetOrderDetails(ctx, orderID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, details)
}

// UpdateOrderStatus handles PUT /orders/:id/status
func (h *OrderHandlers) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "order_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		return common.SendValidationError(c, "status", err.Error())
	}

	order, err := h.orderService.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, order)
}
