package handler

import (
	"net/http"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService *service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req domain.CreateOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to create order", zap.String("customer", req.Customer))
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := domain.StatusFilter(c.DefaultQuery("status", string(domain.StatusFilterAll)))
	switch filter {
	case domain.StatusFilterAll, domain.StatusFilterPending, domain.StatusFilterFulfilled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be all, pending or fulfilled",
		})
		return
	}

	orders, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list orders")
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")

	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get order", zap.String("order_id", id))
		return
	}

	c.JSON(http.StatusOK, order)
}

// FulfillOrder runs fulfillment. A failed attempt still reports which lines
// were decremented, since those decrements may have been kept.
func (h *OrderHandler) FulfillOrder(c *gin.Context) {
	id := c.Param("id")

	result, err := h.orderService.Fulfill(c.Request.Context(), id)
	if err != nil {
		status, body := errorBody(h.logger, err, "Failed to fulfill order", zap.String("order_id", id))
		if result != nil {
			body["result"] = result
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *OrderHandler) RemoveOrder(c *gin.Context) {
	id := c.Param("id")

	if err := h.orderService.RemoveOrder(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to remove order", zap.String("order_id", id))
		return
	}

	c.Status(http.StatusNoContent)
}
