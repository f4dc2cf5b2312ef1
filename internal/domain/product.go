package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StockStatusLow StockStatus = "Low Stock"
	StockStatusIn  StockStatus = "In Stock"
)

type Product struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	ReorderPoint int             `json:"reorderPoint"`
	LastOrdered  *time.Time      `json:"lastOrdered,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// IsLowStock reports whether stock is at or below the reorder point.
func (p *Product) IsLowStock() bool {
	return p.Quantity <= p.ReorderPoint
}

// IsLowStockAt is IsLowStock against a fixed threshold. A threshold of zero
// or less falls back to the reorder point.
func (p *Product) IsLowStockAt(threshold int) bool {
	if threshold > 0 {
		return p.Quantity <= threshold
	}
	return p.IsLowStock()
}

func (p *Product) StockStatus() StockStatus {
	if p.IsLowStock() {
		return StockStatusLow
	}
	return StockStatusIn
}

type CreateProductRequest struct {
	SKU          string          `json:"sku"          validate:"required"`
	Name         string          `json:"name"         validate:"required"`
	Price        decimal.Decimal `json:"price"        validate:"gt=0"`
	Quantity     int             `json:"quantity"     validate:"min=0"`
	ReorderPoint int             `json:"reorderPoint" validate:"min=0"`
}

type UpdateProductRequest struct {
	Name         string          `json:"name"         validate:"required"`
	Price        decimal.Decimal `json:"price"        validate:"gt=0"`
	Quantity     int             `json:"quantity"     validate:"min=0"`
	ReorderPoint int             `json:"reorderPoint" validate:"min=0"`
}

var productMessages = map[string]string{
	"name.required": "Product name is required.",
	"sku.required":  "SKU is required.",
	"price":         "Price must be greater than zero.",
	"quantity":      "Quantity cannot be negative.",
	"reorderPoint":  "Reorder point cannot be negative.",
}

func (r *CreateProductRequest) Validate() error {
	return validateStruct(r, productMessages)
}

func (r *UpdateProductRequest) Validate() error {
	return validateStruct(r, productMessages)
}

// DuplicateSKUError is the field-level rejection for an SKU collision.
func DuplicateSKUError() *ValidationError {
	return NewValidationError("sku", "SKU must be unique.").WithCause(ErrProductExists)
}

type ProductSortField string

const (
	SortByName     ProductSortField = "name"
	SortByQuantity ProductSortField = "quantity"
)

type ListProductsQuery struct {
	Search string
	SortBy ProductSortField
}

type ProductResponse struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	ReorderPoint int             `json:"reorderPoint"`
	Status       StockStatus     `json:"status"`
	LastOrdered  *time.Time      `json:"lastOrdered,omitempty"`
}

func NewProductResponse(p *Product) ProductResponse {
	return ProductResponse{
		SKU:          p.SKU,
		Name:         p.Name,
		Price:        p.Price,
		Quantity:     p.Quantity,
		ReorderPoint: p.ReorderPoint,
		Status:       p.StockStatus(),
		LastOrdered:  p.LastOrdered,
	}
}

// QuantityChange is the outcome of a single quantity mutation.
type QuantityChange struct {
	SKU           string `json:"sku"`
	PreviousStock int    `json:"previousStock"`
	NewStock      int    `json:"newStock"`
}
