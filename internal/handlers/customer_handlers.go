package handlers

import (
	"net/http"

	"storefront/internal/common"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/labstack/echo/v4"
)

// CustomerHandlers handles HTTP requests for customers
type CustomerHandlers struct {
	customerService services.CustomerService
}

func NewCustomerHandlers(customerService services.CustomerService) *CustomerHandlers {
	return &CustomerHandlers{customerService: customerService}
}

type customerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document"`
}

// CreateCustomer handles POST /customers
func (h *CustomerHandlers) CreateCustomer(c echo.Context) error {
	var req customerRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	customer := &models.Customer{Name: req.Name, Email: req.Email, Document: req.Document}
	if err := h.customerService.Create(c.Request().Context(), customer); err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, customer)
}

// GetCustomer handles GET /customers/:id
func (h *CustomerHandlers) GetCustomer(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "customer_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	customer, err := h.customerService.GetByID(c.Request().Context(), id)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, customer)
}

// ListCustomers handles GET /customers
func (h *CustomerHandlers) ListCustomers(c echo.Context) error {
	limit, offset, err := common.ParsePagination(c.QueryParam("limit"), c.QueryParam("offset"), 50)
	if err != nil {
		return common.SendValidationError(c, "pagination", err.Error())
	}

	customers, err := h.customerService.List(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"customers": customers,
		"limit":     limit,
		"offset":    offset,
	})
}

// UpdateCustomer handles PUT /customers/:id
func (h *CustomerHandlers) UpdateCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := common.ValidateUUID(c.Param("id"), "customer_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req customerRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	existing, err := h.customerService.GetByID(ctx, id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	updated := *existing
	updated.Name, updated.Email, updated.Document = req.Name, req.Email, req.Document

	if err := h.customerService.Update(ctx, &updated); err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, &updated)
}

// DeleteCustomer handles DELETE /customers/:id
func (h *CustomerHandlers) DeleteCustomer(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "customer_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.customerService.Delete(c.Request().Context(), id); err != nil {
		return common.SendDomainError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
