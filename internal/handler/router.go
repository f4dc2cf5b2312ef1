package handler

import (
	"net/http"

	"github.com/cloud-wave-best-zizon/inventory-service/pkg/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Products  *ProductHandler
	Stock     *StockHandler
	Orders    *OrderHandler
	Dashboard *DashboardHandler
}

func NewRouter(h Handlers, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})

		v1.POST("/products", h.Products.CreateProduct)
		v1.GET("/products", h.Products.ListProducts)
		v1.GET("/products/:sku", h.Products.GetProduct)
		v1.PUT("/products/:sku", h.Products.UpdateProduct)
		v1.POST("/products/:sku/adjustments", h.Stock.AdjustStock)
		v1.GET("/stock-adjustments", h.Stock.ListAdjustments)

		v1.POST("/orders", h.Orders.CreateOrder)
		v1.GET("/orders", h.Orders.ListOrders)
		v1.GET("/orders/:id", h.Orders.GetOrder)
		v1.POST("/orders/:id/fulfill", h.Orders.FulfillOrder)
		v1.DELETE("/orders/:id", h.Orders.RemoveOrder)

		v1.GET("/dashboard", h.Dashboard.GetDashboard)
		v1.GET("/dashboard/stream", h.Dashboard.Stream)
		v1.GET("/reports/sales", h.Dashboard.GetSalesReport)
	}

	return router
}
