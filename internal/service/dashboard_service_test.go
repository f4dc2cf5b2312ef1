package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_Snapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.seedProduct(t, "W-1", "Widget", "2.50", 10, 5)
	env.seedProduct(t, "G-1", "Gadget", "4.00", 5, 5)
	env.seedProduct(t, "S-1", "Sprocket", "1.00", 20, 5)

	env.clock.Advance(time.Minute)
	env.seedLegacyOrder(t, "o-1", "Dana", "Widget")
	env.clock.Advance(time.Minute)
	env.seedLegacyOrder(t, "o-2", "", "Gadget")
	env.clock.Advance(time.Minute)
	_, err := env.stock.AdjustStock(ctx, domain.AdjustStockRequest{
		ProductID:      "S-1",
		AdjustmentType: domain.AdjustmentRemove,
		Quantity:       2,
		Reason:         "damaged",
	})
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	_, err = env.orders.Fulfill(ctx, "o-1")
	require.NoError(t, err)

	dash, err := env.dashboard.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.DashboardStats{
		TotalProducts:   3,
		LowStock:        1,
		TotalOrders:     2,
		PendingOrders:   1,
		FulfilledOrders: 1,
	}, dash.Stats)

	messages := make([]string, 0, len(dash.RecentActivity))
	for _, a := range dash.RecentActivity {
		messages = append(messages, a.Message)
	}
	assert.Equal(t, []string{
		"Dana fulfilled an order.",
		`2 piece(s) of "Sprocket" was removed from stock. Reason: damaged.`,
		"A customer placed an order.",
	}, messages)
	assert.Equal(t, domain.ActivityOrder, dash.RecentActivity[0].Kind)
	assert.Equal(t, testEpoch.Add(4*time.Minute), dash.RecentActivity[0].Time)
}

func TestDashboardService_Snapshot_FixedThreshold(t *testing.T) {
	env := newTestEnvWith(t, FulfillmentOptions{}, DashboardOptions{LowStockThreshold: 10})
	env.seedProduct(t, "W-1", "Widget", "2.50", 10, 0)
	env.seedProduct(t, "G-1", "Gadget", "4.00", 11, 50)

	dash, err := env.dashboard.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Stats.LowStock)
}

func TestDashboardService_Snapshot_UnknownStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedLegacyOrder(t, "o-1", "Dana", "Widget")
	require.NoError(t, env.store.CreateOrder(ctx, &domain.Order{
		ID:           "o-2",
		Customer:     "Lee",
		ProductNames: []string{"Widget"},
		Total:        decimal.Zero,
		Status:       domain.OrderStatus("cancelled"),
		Date:         env.clock.Now(),
	}))

	dash, err := env.dashboard.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dash.Stats.TotalOrders)
	assert.Equal(t, 1, dash.Stats.PendingOrders)
	assert.Equal(t, 0, dash.Stats.FulfilledOrders)
}

func TestDashboardService_Snapshot_ActivityLimit(t *testing.T) {
	env := newTestEnvWith(t, FulfillmentOptions{}, DashboardOptions{RecentActivityLimit: 3})
	for i := 0; i < 5; i++ {
		env.seedLegacyOrder(t, fmt.Sprintf("o-%d", i), fmt.Sprintf("Customer %d", i), "Widget")
		env.clock.Advance(time.Second)
	}

	dash, err := env.dashboard.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, dash.RecentActivity, 3)
	assert.Equal(t, "o-4", dash.RecentActivity[0].ID)
	assert.Equal(t, "o-2", dash.RecentActivity[2].ID)
}

func TestDashboardService_SalesReport(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedProduct(t, "W-1", "Widget", "2.50", 10, 5)
	env.seedProduct(t, "G-1", "Gadget", "4.00", 10, 5)

	_, err := env.orders.CreateOrder(ctx, domain.CreateOrderRequest{
		Customer: "Dana",
		Items:    []domain.OrderItemRequest{{SKU: "W-1", Quantity: 2}, {SKU: "G-1", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = env.orders.CreateOrder(ctx, domain.CreateOrderRequest{
		Customer: "Lee",
		Items:    []domain.OrderItemRequest{{SKU: "G-1", Quantity: 1}},
	})
	require.NoError(t, err)

	report, err := env.dashboard.SalesReport(ctx)
	require.NoError(t, err)

	assert.Equal(t, "13.00", report.TotalSales.StringFixed(2))
	assert.Equal(t, []domain.ProductSales{
		{SKU: "G-1", Name: "Gadget", Units: 2},
		{SKU: "W-1", Name: "Widget", Units: 2},
	}, report.TopProducts)
}

func TestDashboardService_Watch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	updates := make(chan *domain.Dashboard, 16)
	stop, err := env.dashboard.Watch(ctx, func(d *domain.Dashboard) { updates <- d })
	require.NoError(t, err)
	defer stop()

	initial := <-updates
	assert.Equal(t, 0, initial.Stats.TotalOrders)

	env.seedLegacyOrder(t, "o-1", "Dana", "Widget")

	require.Eventually(t, func() bool {
		select {
		case d := <-updates:
			return d.Stats.TotalOrders == 1
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
