package repository

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/shopspring/decimal"
)

// decimalAttr stores a decimal as a DynamoDB number without going through float64.
type decimalAttr struct {
	decimal.Decimal
}

func (d decimalAttr) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: d.String()}, nil
}

func (d *decimalAttr) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	var raw string
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		raw = v.Value
	case *types.AttributeValueMemberS:
		// legacy documents stored totals as formatted strings
		raw = v.Value
	case *types.AttributeValueMemberNULL:
		d.Decimal = decimal.Zero
		return nil
	default:
		return fmt.Errorf("unsupported attribute type %T for decimal", av)
	}

	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("failed to parse decimal %q: %w", raw, err)
	}
	d.Decimal = parsed
	return nil
}

type productItem struct {
	SKU          string      `dynamodbav:"sku"`
	Name         string      `dynamodbav:"name"`
	Price        decimalAttr `dynamodbav:"price"`
	Quantity     int         `dynamodbav:"quantity"`
	ReorderPoint int         `dynamodbav:"reorderPoint"`
	LastOrdered  *time.Time  `dynamodbav:"lastOrdered,omitempty"`
	CreatedAt    time.Time   `dynamodbav:"createdAt"`
	UpdatedAt    time.Time   `dynamodbav:"updatedAt"`
}

func newProductItem(p *domain.Product) productItem {
	return productItem{
		SKU:          p.SKU,
		Name:         p.Name,
		Price:        decimalAttr{p.Price},
		Quantity:     p.Quantity,
		ReorderPoint: p.ReorderPoint,
		LastOrdered:  p.LastOrdered,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (i productItem) toDomain() *domain.Product {
	return &domain.Product{
		SKU:          i.SKU,
		Name:         i.Name,
		Price:        i.Price.Decimal,
		Quantity:     i.Quantity,
		ReorderPoint: i.ReorderPoint,
		LastOrdered:  i.LastOrdered,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

type orderLineItem struct {
	SKU  string `dynamodbav:"sku,omitempty"`
	Name string `dynamodbav:"name"`
}

type orderItem struct {
	ID           string          `dynamodbav:"id"`
	Customer     string          `dynamodbav:"customer"`
	ProductNames []string        `dynamodbav:"productNames"`
	Items        []orderLineItem `dynamodbav:"items,omitempty"`
	Total        decimalAttr     `dynamodbav:"total"`
	Status       string          `dynamodbav:"status"`
	Date         time.Time       `dynamodbav:"date"`
	FulfilledAt  *time.Time      `dynamodbav:"fulfilledAt,omitempty"`
}

func newOrderItem(o *domain.Order) orderItem {
	lines := make([]orderLineItem, 0, len(o.Items))
	for _, l := range o.Items {
		lines = append(lines, orderLineItem{SKU: l.SKU, Name: l.Name})
	}
	return orderItem{
		ID:           o.ID,
		Customer:     o.Customer,
		ProductNames: o.ProductNames,
		Items:        lines,
		Total:        decimalAttr{o.Total},
		Status:       string(o.Status),
		Date:         o.Date,
		FulfilledAt:  o.FulfilledAt,
	}
}

func (i orderItem) toDomain() *domain.Order {
	var lines []domain.OrderLine
	for _, l := range i.Items {
		lines = append(lines, domain.OrderLine{SKU: l.SKU, Name: l.Name})
	}
	return &domain.Order{
		ID:           i.ID,
		Customer:     i.Customer,
		ProductNames: i.ProductNames,
		Items:        lines,
		Total:        i.Total.Decimal,
		Status:       domain.OrderStatus(i.Status),
		Date:         i.Date,
		FulfilledAt:  i.FulfilledAt,
	}
}

type adjustmentItem struct {
	ID             string    `dynamodbav:"id"`
	ProductID      string    `dynamodbav:"productId"`
	ProductName    string    `dynamodbav:"productName"`
	Quantity       int       `dynamodbav:"quantity"`
	AdjustmentType string    `dynamodbav:"adjustmentType"`
	Reason         string    `dynamodbav:"reason"`
	Date           time.Time `dynamodbav:"date"`
}

func newAdjustmentItem(a *domain.StockAdjustment) adjustmentItem {
	return adjustmentItem{
		ID:             a.ID,
		ProductID:      a.ProductID,
		ProductName:    a.ProductName,
		Quantity:       a.Quantity,
		AdjustmentType: string(a.AdjustmentType),
		Reason:         a.Reason,
		Date:           a.Date,
	}
}

func (i adjustmentItem) toDomain() *domain.StockAdjustment {
	return &domain.StockAdjustment{
		ID:             i.ID,
		ProductID:      i.ProductID,
		ProductName:    i.ProductName,
		Quantity:       i.Quantity,
		AdjustmentType: domain.AdjustmentType(i.AdjustmentType),
		Reason:         i.Reason,
		Date:           i.Date,
	}
}
