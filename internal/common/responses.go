package common

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"storefront/internal/models"

	"github.com/labstack/echo/v4"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// ErrorStatus maps a domain error to its HTTP status and response code.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidArgument),
		errors.Is(err, models.ErrInvalidOrder),
		errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrInvalidItem):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, models.ErrCustomerNotFound),
		errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrOrderNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, models.ErrInsufficientStock):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"
	case errors.Is(err, models.ErrDuplicateRequest):
		return http.StatusConflict, "DUPLICATE_REQUEST"
	case errors.Is(err, models.ErrInvalidStatusTransition):
		return http.StatusConflict, "INVALID_STATUS_TRANSITION"
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusInternalServerError, "SERVER_ERROR"
	}
}

// SendDomainError writes err using the error envelope. Server errors never expose the cause.
func SendDomainError(c echo.Context, err error) error {
	status, code := ErrorStatus(err)
	if status == http.StatusInternalServerError {
		LoggerFromContext(c.Request().Context()).WithError(err).Error("Request failed")
		return SendServerError(c, "the request could not be completed")
	}

	var details map[string]string
	var stockErr *models.InsufficientStockError
	if errors.As(err, &stockErr) {
		details = map[string]string{
			"product_id": stockErr.ProductID.String(),
			"available":  strconv.Itoa(stockErr.Available),
			"requested":  strconv.Itoa(stockErr.Requested),
			"stage":      "validation",
		}
	}
	// Commit-time failures keep their domain status but say where they happened
	if errors.Is(err, models.ErrCommitFailure) {
		if details == nil {
			details = map[string]string{}
		}
		details["stage"] = "commit"
	}
	return c.JSON(status, CreateErrorResponse(code, err.Error(), details))
}
