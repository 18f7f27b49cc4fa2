package handlers

import (
	"net/http"
	"strconv"

	"storefront/internal/common"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ProductHandlers handles HTTP requests for products
type ProductHandlers struct {
	productService services.ProductService
}

// NewProductHandlers creates a new product handlers instance
func NewProductHandlers(productService services.ProductService) *ProductHandlers {
	return &ProductHandlers{
		productService: productService,
	}
}

type productRequest struct {
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	StockQty int             `json:"stock_qty"`
	IsActive *bool           `json:"is_active"`
}

func (r *productRequest) apply(product *models.Product) {
	product.Name = r.Name
	product.SKU = r.SKU
	product.Price = r.Price
	product.StockQty = r.StockQty
	if r.IsActive != nil {
		product.IsActive = *r.IsActive
	}
}

// CreateProduct handles POST /products
func (h *ProductHandlers) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	product := &models.Product{IsActive: true}
	req.apply(product)

	if err := h.productService.Create(ctx, product); err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, product)
}

// GetProduct handles GET /products/:id
func (h *ProductHandlers) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "product_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	product, err := h.productService.GetByID(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, product)
}

// ListProducts handles GET /products
func (h *ProductHandlers) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	limit, offset, err := common.ParsePagination(c.QueryParam("limit"), c.QueryParam("offset"), 50)
	if err != nil {
		return common.SendValidationError(c, "pagination", err.Error())
	}

	filter := &models.ProductFilter{
		Query:      c.QueryParam("q"),
		ActiveOnly: c.QueryParam("active") == "true",
		Limit:      limit,
		Offset:     offset,
	}
	if raw := c.QueryParam("max_stock"); raw != "" {
		maxStock, err := strconv.Atoi(raw)
		if err != nil {
			return common.SendValidationError(c, "max_stock", "max_stock must be an integer")
		}
		filter.MaxStock = &maxStock
	}

	products, err := h.productService.List(ctx, filter)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": products,
		"limit":    limit,
		"offset":   offset,
	})
}

// UpdateProduct handles PUT /products/:id
func (h *ProductHandlers) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "product_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	product, err := h.productService.GetByID(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	updated := *product
	req.apply(&updated)

	if err := h.productService.Update(ctx, &updated); err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, &updated)
}

// DeleteProduct handles DELETE /products/:id
func (h *ProductHandlers) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "product_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.productService.Delete(ctx, id); err != nil {
		return common.SendDomainError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetLowStock handles GET /products/low-stock
func (h *ProductHandlers) GetLowStock(c echo.Context) error {
	ctx := c.Request().Context()

	threshold := 10
	if raw := c.QueryParam("threshold"); raw != "" {
		var err error
		if threshold, err = strconv.Atoi(raw); err != nil {
			return common.SendValidationError(c, "threshold", "threshold must be an integer")
		}
	}

	products, err := h.productService.LowStock(ctx, threshold)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"products":  products,
		"threshold": threshold,
	})
}
