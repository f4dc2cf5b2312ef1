package domain

import "time"

type AdjustmentType string

const (
	AdjustmentAdd    AdjustmentType = "add"
	AdjustmentRemove AdjustmentType = "remove"
)

// Delta turns a positive magnitude into a signed quantity change.
func (t AdjustmentType) Delta(quantity int) int {
	if t == AdjustmentRemove {
		return -quantity
	}
	return quantity
}

// StockAdjustment is an append-only audit record of a manual stock change.
type StockAdjustment struct {
	ID             string         `json:"id"`
	ProductID      string         `json:"productId"`
	ProductName    string         `json:"productName"`
	Quantity       int            `json:"quantity"`
	AdjustmentType AdjustmentType `json:"adjustmentType"`
	Reason         string         `json:"reason"`
	Date           time.Time      `json:"date"`
}

type AdjustStockRequest struct {
	ProductID      string         `json:"productId"      validate:"required"`
	AdjustmentType AdjustmentType `json:"adjustmentType" validate:"required,oneof=add remove"`
	Quantity       int            `json:"quantity"       validate:"required,min=1,max=1000000"`
	Reason         string         `json:"reason"         validate:"required"`
}

var adjustmentMessages = map[string]string{
	"productId.required":      "Product is required.",
	"adjustmentType.required": "Adjustment type is required.",
	"adjustmentType.oneof":    "Adjustment type must be add or remove.",
	"quantity.required":       "Quantity is required.",
	"quantity.max":            "Quantity cannot exceed 1000000.",
	"quantity":                "Quantity must be a positive integer.",
	"reason.required":         "Reason is required.",
}

func (r *AdjustStockRequest) Validate() error {
	return validateStruct(r, adjustmentMessages)
}

type StockAdjustmentResult struct {
	Adjustment    *StockAdjustment `json:"adjustment"`
	PreviousStock int              `json:"previousStock"`
	NewStock      int              `json:"newStock"`
}
