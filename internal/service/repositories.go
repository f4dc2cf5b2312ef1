package service

import (
	"context"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/events"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *domain.Product) error
	GetProduct(ctx context.Context, sku string) (*domain.Product, error)
	FindProductsByName(ctx context.Context, name string) ([]*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	AdjustQuantity(ctx context.Context, sku string, delta int) (*domain.QuantityChange, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	MarkOrderFulfilled(ctx context.Context, id string, at time.Time) error
	DeleteOrder(ctx context.Context, id string) error
}

type AdjustmentRepository interface {
	ApplyAdjustment(ctx context.Context, adj *domain.StockAdjustment, expectedQuantity int) (*domain.QuantityChange, error)
	ListAdjustments(ctx context.Context) ([]*domain.StockAdjustment, error)
}

// QuantityUpdater applies signed stock deltas; *ProductService implements it.
type QuantityUpdater interface {
	UpdateQuantity(ctx context.Context, sku string, delta int) (*domain.QuantityChange, error)
}

// LowStockCounter counts products running low; *ProductService implements it.
type LowStockCounter interface {
	LowStockCount(ctx context.Context, threshold int) (int, error)
}

// ChangeSource hands out change subscriptions; *events.Hub implements it.
type ChangeSource interface {
	Subscribe(collections ...events.Collection) *events.Subscription
}
