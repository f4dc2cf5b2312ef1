package handler

import (
	"net/http"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StockHandler struct {
	stockService *service.StockService
	logger       *zap.Logger
}

func NewStockHandler(stockService *service.StockService, logger *zap.Logger) *StockHandler {
	return &StockHandler{
		stockService: stockService,
		logger:       logger,
	}
}

type adjustStockBody struct {
	AdjustmentType domain.AdjustmentType `json:"adjustmentType"`
	Quantity       int                   `json:"quantity"`
	Reason         string                `json:"reason"`
}

func (h *StockHandler) AdjustStock(c *gin.Context) {
	sku := c.Param("sku")

	var body adjustStockBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, h.logger, err)
		return
	}

	result, err := h.stockService.AdjustStock(c.Request.Context(), domain.AdjustStockRequest{
		ProductID:      sku,
		AdjustmentType: body.AdjustmentType,
		Quantity:       body.Quantity,
		Reason:         body.Reason,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to adjust stock", zap.String("sku", sku))
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *StockHandler) ListAdjustments(c *gin.Context) {
	adjustments, err := h.stockService.ListAdjustments(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list stock adjustments")
		return
	}

	c.JSON(http.StatusOK, adjustments)
}
