package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/events"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultRecentActivityLimit = 10
	anonymousCustomer          = "A customer"
)

type DashboardOptions struct {
	// LowStockThreshold counts products at or below a fixed quantity as low
	// stock. Zero uses each product's reorder point instead.
	LowStockThreshold   int
	RecentActivityLimit int
}

// DashboardService derives the read-only dashboard and sales report from the
// three collections.
type DashboardService struct {
	productRepo    ProductRepository
	orderRepo      OrderRepository
	adjustmentRepo AdjustmentRepository
	lowStock       LowStockCounter
	changes        ChangeSource
	opts           DashboardOptions
	logger         *zap.Logger
}

func NewDashboardService(
	productRepo ProductRepository,
	orderRepo OrderRepository,
	adjustmentRepo AdjustmentRepository,
	lowStock LowStockCounter,
	changes ChangeSource,
	opts DashboardOptions,
	logger *zap.Logger,
) *DashboardService {
	if opts.RecentActivityLimit <= 0 {
		opts.RecentActivityLimit = defaultRecentActivityLimit
	}
	return &DashboardService{
		productRepo:    productRepo,
		orderRepo:      orderRepo,
		adjustmentRepo: adjustmentRepo,
		lowStock:       lowStock,
		changes:        changes,
		opts:           opts,
		logger:         logger,
	}
}

func (s *DashboardService) Snapshot(ctx context.Context) (*domain.Dashboard, error) {
	products, err := s.productRepo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	orders, err := s.orderRepo.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	adjustments, err := s.adjustmentRepo.ListAdjustments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock adjustments: %w", err)
	}

	lowStock, err := s.lowStock.LowStockCount(ctx, s.opts.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to count low stock products: %w", err)
	}

	stats := domain.DashboardStats{
		TotalProducts: len(products),
		LowStock:      lowStock,
		TotalOrders:   len(orders),
	}
	for _, o := range orders {
		switch o.Status {
		case domain.OrderStatusPending:
			stats.PendingOrders++
		case domain.OrderStatusFulfilled:
			stats.FulfilledOrders++
		}
	}

	return &domain.Dashboard{
		Stats:          stats,
		RecentActivity: recentActivity(orders, adjustments, s.opts.RecentActivityLimit),
	}, nil
}

// SalesReport totals every order and ranks products by units ordered.
func (s *DashboardService) SalesReport(ctx context.Context) (*domain.SalesReport, error) {
	orders, err := s.orderRepo.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	total := decimal.Zero
	units := make(map[string]*domain.ProductSales)
	for _, o := range orders {
		total = total.Add(o.Total)
		for _, line := range o.Lines() {
			key := line.SKU
			if key == "" {
				key = "name:" + line.Name
			}
			ps, ok := units[key]
			if !ok {
				ps = &domain.ProductSales{SKU: line.SKU, Name: line.Name}
				units[key] = ps
			}
			ps.Units++
		}
	}

	top := make([]domain.ProductSales, 0, len(units))
	for _, ps := range units {
		top = append(top, *ps)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Units != top[j].Units {
			return top[i].Units > top[j].Units
		}
		if top[i].Name != top[j].Name {
			return top[i].Name < top[j].Name
		}
		return top[i].SKU < top[j].SKU
	})

	return &domain.SalesReport{
		TotalSales:  total.Round(2),
		TopProducts: top,
	}, nil
}

// Watch delivers a fresh snapshot on every change to products, orders or
// stock adjustments.
func (s *DashboardService) Watch(ctx context.Context, fn func(*domain.Dashboard)) (StopFunc, error) {
	return watch(ctx, s.changes,
		[]events.Collection{
			events.CollectionProducts,
			events.CollectionOrders,
			events.CollectionStockAdjustments,
		},
		s.Snapshot,
		fn,
		s.logger)
}

func recentActivity(orders []*domain.Order, adjustments []*domain.StockAdjustment, limit int) []domain.Activity {
	activities := make([]domain.Activity, 0, len(orders)+len(adjustments))

	for _, o := range orders {
		customer := o.Customer
		if customer == "" {
			customer = anonymousCustomer
		}
		a := domain.Activity{
			ID:      o.ID,
			Kind:    domain.ActivityOrder,
			Message: customer + " placed an order.",
			Time:    o.Date,
		}
		if o.Status == domain.OrderStatusFulfilled {
			a.Message = customer + " fulfilled an order."
			if o.FulfilledAt != nil {
				a.Time = *o.FulfilledAt
			}
		}
		activities = append(activities, a)
	}

	for _, adj := range adjustments {
		direction := "added to"
		if adj.AdjustmentType == domain.AdjustmentRemove {
			direction = "removed from"
		}
		activities = append(activities, domain.Activity{
			ID:   adj.ID,
			Kind: domain.ActivityAdjustment,
			Message: fmt.Sprintf("%d piece(s) of %q was %s stock. Reason: %s.",
				adj.Quantity, adj.ProductName, direction, adj.Reason),
			Time: adj.Date,
		})
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Time.After(activities[j].Time)
	})

	if len(activities) > limit {
		activities = activities[:limit]
	}
	return activities
}
