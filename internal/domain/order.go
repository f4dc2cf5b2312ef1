package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFulfilled OrderStatus = "fulfilled"
)

// OrderLine is one purchased unit. SKU is the product key; Name is the
// display snapshot taken when the order was placed.
type OrderLine struct {
	SKU  string `json:"sku,omitempty"`
	Name string `json:"name"`
}

type Order struct {
	ID           string          `json:"id"`
	Customer     string          `json:"customer"`
	ProductNames []string        `json:"productNames"`
	Items        []OrderLine     `json:"items,omitempty"`
	Total        decimal.Decimal `json:"total"`
	Status       OrderStatus     `json:"status"`
	Date         time.Time       `json:"date"`
	FulfilledAt  *time.Time      `json:"fulfilledAt,omitempty"`
}

// Lines returns the unit lines to fulfill. Orders written before items
// carried a SKU only have product names; those lines come back without one.
func (o *Order) Lines() []OrderLine {
	if len(o.Items) > 0 {
		return o.Items
	}
	lines := make([]OrderLine, 0, len(o.ProductNames))
	for _, name := range o.ProductNames {
		lines = append(lines, OrderLine{Name: name})
	}
	return lines
}

func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

type OrderItemRequest struct {
	SKU      string `json:"sku"      validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

type CreateOrderRequest struct {
	Customer string             `json:"customer" validate:"required"`
	Items    []OrderItemRequest `json:"items"    validate:"required,min=1,dive"`
}

var orderMessages = map[string]string{
	"customer.required": "Customer is required.",
	"items.required":    "At least one product is required.",
	"items.min":         "At least one product is required.",
	"sku.required":      "Product is required.",
	"quantity":          "Quantity must be at least 1.",
}

func (r *CreateOrderRequest) Validate() error {
	return validateStruct(r, orderMessages)
}

type StatusFilter string

const (
	StatusFilterAll       StatusFilter = "all"
	StatusFilterPending   StatusFilter = "pending"
	StatusFilterFulfilled StatusFilter = "fulfilled"
)

func (f StatusFilter) Match(o *Order) bool {
	switch f {
	case StatusFilterPending:
		return o.Status == OrderStatusPending
	case StatusFilterFulfilled:
		return o.Status == OrderStatusFulfilled
	default:
		return true
	}
}

// LineOutcome describes what happened to one unit line during fulfillment.
type LineOutcome struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	PreviousStock int    `json:"previousStock"`
	NewStock      int    `json:"newStock"`
}

type FulfillmentResult struct {
	OrderID     string        `json:"orderId"`
	Status      OrderStatus   `json:"status"`
	Decremented []LineOutcome `json:"decremented"`
	Skipped     []OrderLine   `json:"skipped,omitempty"`
	Compensated []LineOutcome `json:"compensated,omitempty"`
}
