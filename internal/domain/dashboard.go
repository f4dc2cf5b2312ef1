package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ActivityKind string

const (
	ActivityOrder      ActivityKind = "order"
	ActivityAdjustment ActivityKind = "adjustment"
)

type Activity struct {
	ID      string       `json:"id"`
	Kind    ActivityKind `json:"kind"`
	Message string       `json:"message"`
	Time    time.Time    `json:"time"`
}

type DashboardStats struct {
	TotalProducts   int `json:"totalProducts"`
	LowStock        int `json:"lowStock"`
	TotalOrders     int `json:"totalOrders"`
	PendingOrders   int `json:"pendingOrders"`
	FulfilledOrders int `json:"fulfilledOrders"`
}

type Dashboard struct {
	Stats          DashboardStats `json:"stats"`
	RecentActivity []Activity     `json:"recentActivity"`
}

type ProductSales struct {
	SKU   string `json:"sku,omitempty"`
	Name  string `json:"name"`
	Units int    `json:"units"`
}

type SalesReport struct {
	TotalSales  decimal.Decimal `json:"totalSales"`
	TopProducts []ProductSales  `json:"topProducts"`
}
