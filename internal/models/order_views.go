package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SortDateAsc  = "date_asc"
	SortDateDesc = "date_desc"
)

// OrderListFilter holds list criteria for order queries
type OrderListFilter struct {
	CustomerName string       `json:"customer_name,omitempty"` // Case-insensitive substring of the customer name
	Status       *OrderStatus `json:"status,omitempty"`        // Status filter
	SortBy       string       `json:"sort_by,omitempty"`       // date_asc (default) or date_desc
	Limit        int          `json:"limit,omitempty"`         // Page size (default: 10)
	Offset       int          `json:"offset,omitempty"`        // Page offset
}

type OrderListItem struct {
	ID           uuid.UUID       `json:"id"`
	CustomerName string          `json:"customer_name"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

type OrderDetailsItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type OrderDetails struct {
	ID               uuid.UUID          `json:"id"`
	CustomerID       uuid.UUID          `json:"customer_id"`
	CustomerName     string             `json:"customer_name"`
	CustomerDocument string             `json:"customer_document"`
	TotalAmount      decimal.Decimal    `json:"total_amount"`
	Status           OrderStatus        `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	Items            []OrderDetailsItem `json:"items"`
}

// PagedResult is one page of a list query
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
}

// Placeholder names for references that no longer resolve
const (
	UnknownCustomerName = "Unknown customer"
	UnknownProductName  = "Unknown product"
)
